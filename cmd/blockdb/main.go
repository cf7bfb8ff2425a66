// Command blockdb is a small inspection and loading tool for blockdb
// databases.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	blockdb "github.com/pschou/go-blockdb"
)

var (
	dbPath string
	noSync bool
)

func main() {
	root := &cobra.Command{
		Use:           "blockdb",
		Short:         "inspect and load append-only block databases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&dbPath, "path", "p", "./blockdb", "database directory")
	root.PersistentFlags().BoolVar(&noSync, "no-sync", false, "do not fsync after every write")

	root.AddCommand(createCmd(), putCmd(), getCmd(), heightCmd(), hashCmd(), infoCmd(), heightsCmd())

	if err := root.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func openDB() (*blockdb.DB, error) {
	return blockdb.Open(dbPath, blockdb.WithSyncWrites(!noSync))
}

func parseHash(s string) (blockdb.Hash, error) {
	var h blockdb.Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %v", s, err)
	}
	if len(raw) != blockdb.HashSize {
		return h, fmt.Errorf("invalid hash %q: want %d bytes, got %d", s, blockdb.HashSize, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "create an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := blockdb.Create(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			logrus.WithField("path", dbPath).Info("database created")
			return nil
		},
	}
}

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <hash> <height> [file]",
		Short: "store a payload from a file or stdin",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}
			height, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid height %q: %v", args[1], err)
			}

			in := io.Reader(os.Stdin)
			if len(args) == 3 {
				fh, err := os.Open(args[2])
				if err != nil {
					return err
				}
				defer fh.Close()
				in = fh
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Put(hash, height, data); err != nil {
				return err
			}
			if noSync {
				if err := db.Sync(); err != nil {
					return err
				}
			}
			logrus.WithFields(logrus.Fields{
				"height": height,
				"bytes":  len(data),
			}).Info("stored")
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <hash>",
		Short: "write the payload for a hash to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			data, err := db.Get(hash)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func heightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "height <n>",
		Short: "write the payload stored at a height to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid height %q: %v", args[0], err)
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			data, err := db.GetByHeight(height)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func hashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <n>",
		Short: "print the hash stored at a height",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid height %q: %v", args[0], err)
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			hash, err := db.GetHashByHeight(height)
			if err != nil {
				return err
			}
			fmt.Printf("%x\n", hash)
			return nil
		},
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "print database statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			stats := db.Stats()

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Field", "Value"})
			table.Append([]string{"Path", db.Path()})
			table.Append([]string{"Entries", humanize.Comma(int64(stats.EntryCount))})
			table.Append([]string{"Data size", humanize.Bytes(stats.DataSize)})
			table.Append([]string{"Latest height", strconv.FormatUint(stats.LatestHeight, 10)})
			table.Append([]string{"Latest hash", fmt.Sprintf("%x", stats.LatestHash)})
			table.Append([]string{"Genesis hash", fmt.Sprintf("%x", stats.GenesisHash)})
			table.Render()
			return nil
		},
	}
}

func heightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heights",
		Short: "list every stored height with its hash and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Height", "Hash", "Bytes"})
			err = db.Walk(func(height uint64, hash blockdb.Hash, data []byte) error {
				table.Append([]string{
					strconv.FormatUint(height, 10),
					fmt.Sprintf("%x", hash),
					strconv.Itoa(len(data)),
				})
				return nil
			})
			if err != nil {
				return err
			}
			table.Render()
			return nil
		},
	}
}
