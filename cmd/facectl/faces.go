package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled employees of the company",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <employee-id>",
	Short: "Remove an employee's face descriptor",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	store, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer e.registry.Release(companyID)

	descriptors := store.Snapshot()
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].EmployeeID < descriptors[j].EmployeeID
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMPLOYEE\tDIM\tUPDATED")
	for _, d := range descriptors {
		fmt.Fprintf(w, "%s\t%d\t%s\n", d.EmployeeID, len(d.Embedding), d.UpdatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d enrolled\n", len(descriptors))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	employeeID := args[0]
	ctx := context.Background()

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.registry.Remove(ctx, companyID, employeeID); err != nil {
		return fmt.Errorf("failed to delete descriptor: %w", err)
	}
	fmt.Printf("Deleted descriptor of %s\n", employeeID)
	return nil
}
