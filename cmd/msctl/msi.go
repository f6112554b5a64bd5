package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aggregator-project/msdelivery/internal/msidb"
)

func newMSICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msi",
		Short: "Read and edit MSI database Property/Binary/Stream/Summary data (C11)",
	}
	cmd.AddCommand(newMSIGetCmd(), newMSISetCmd(), newMSITablesCmd(), newMSIStreamsCmd())
	return cmd
}

func openReadOnly(path string) (*msidb.Database, error) {
	db, err := msidb.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.OpenDatabase(msidb.ModeReadOnly); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newMSIGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path> <property>",
		Short: "Print a single MSI property value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openReadOnly(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			value, err := db.GetProperty(args[1])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
}

func newMSISetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <property> <value>",
		Short: "Set (insert or update) an MSI property and commit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := msidb.Open(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.OpenDatabase(msidb.ModeDirect); err != nil {
				return err
			}
			if err := db.SetProperty(args[1], args[2]); err != nil {
				return err
			}
			return db.Commit()
		},
	}
}

func newMSIStreamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streams <path>",
		Short: "List every _Streams row's name and byte size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openReadOnly(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			streams, err := db.GetStreams()
			if err != nil {
				return err
			}
			return printJSON(streams)
		},
	}
}

func newMSITablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables <path>",
		Short: "List a database's tables and the columns of a given table",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openReadOnly(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 2 {
				cols, err := db.GetTableColumns(args[1])
				if err != nil {
					return err
				}
				return printJSON(cols)
			}

			rows, err := db.ExecuteSQL("_Tables")
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
}
