package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/library"
)

var curriculaCmd = &cobra.Command{
	Use:     "curricula",
	Aliases: []string{"library"},
	Short:   "Browse saved curricula",
}

var curriculaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved curricula, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		lib, closeLib, err := openLibrary()
		if err != nil {
			return err
		}
		defer closeLib()

		entries, err := lib.List(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list curricula: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No saved curricula.")
			return nil
		}

		fmt.Printf("%-36s  %-16s  %-10s  %-5s  %s\n", "ID", "Saved", "Subject", "Grade", "Title")
		fmt.Println(strings.Repeat("─", 100))
		for _, e := range entries {
			fmt.Printf("%-36s  %-16s  %-10s  %-5s  %s\n",
				e.ID,
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
				truncate(e.Query.Subject, 10),
				e.Query.Grade,
				e.Title,
			)
		}
		return nil
	},
}

var curriculaViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Print a saved curriculum",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		lib, closeLib, err := openLibrary()
		if err != nil {
			return err
		}
		defer closeLib()

		e, err := lib.Get(cmd.Context(), args[0])
		if errors.Is(err, library.ErrNotFound) {
			return fmt.Errorf("curriculum %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("get curriculum: %w", err)
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(e.Curriculum)
		}

		fmt.Printf("Subject:   %s\n", e.Query.Subject)
		fmt.Printf("Grade:     %s\n", e.Query.Grade)
		fmt.Printf("Topics:    %s\n", e.Query.Topics)
		fmt.Printf("Saved:     %s\n\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Print(curriculum.Format(e.Curriculum))

		if len(e.Resources) > 0 {
			fmt.Println("\nResources:")
			for _, r := range e.Resources {
				fmt.Printf("  - %s\n    %s\n", r.Title, r.URL)
			}
		}
		return nil
	},
}

func init() {
	curriculaListCmd.Flags().IntP("limit", "n", 20, "Number of curricula to show")
	curriculaViewCmd.Flags().Bool("json", false, "Print the curriculum document as JSON")

	curriculaCmd.AddCommand(curriculaListCmd)
	curriculaCmd.AddCommand(curriculaViewCmd)
}
