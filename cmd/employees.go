package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/argus/internal/config"
)

var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "Manage the employee roster",
}

var employeesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees",
	RunE:  runEmployeesList,
}

var employeesDeleteCmd = &cobra.Command{
	Use:   "delete <employee-id>",
	Short: "Delete an employee and their attendance records",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmployeesDelete,
}

func init() {
	rootCmd.AddCommand(employeesCmd)
	employeesCmd.AddCommand(employeesListCmd)
	employeesCmd.AddCommand(employeesDeleteCmd)

	employeesListCmd.Flags().String("search", "", "Filter by name (diacritics ignored) or exact employee ID")
}

func runEmployeesList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.Close(context.Background())

	employees, err := svcs.store.Employees.List(ctx, mustGetString(cmd, "search"))
	if err != nil {
		return err
	}

	if len(employees) == 0 {
		fmt.Println("No employees found")
		return nil
	}
	for _, emp := range employees {
		enrolled := " "
		if emp.Enrolled() {
			enrolled = "*"
		}
		fmt.Printf("%s %-10s %-30s %s\n", enrolled, emp.EmployeeID, emp.FullName, emp.Department)
	}
	fmt.Printf("\n%d employees (* = face enrolled)\n", len(employees))
	return nil
}

func runEmployeesDelete(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.Close(context.Background())

	id := args[0]
	if err := svcs.recognition.DeleteEmployee(ctx, svcs.store.Punches, id); err != nil {
		return err
	}
	fmt.Printf("Deleted employee %s and their attendance records\n", id)
	return nil
}
