package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/argus/internal/config"
	"github.com/kozaktomas/argus/internal/facematch"
	"github.com/kozaktomas/argus/internal/recognition"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll an employee from a photo file",
	Long: `Enroll an employee directly from the command line.
The photo is sent to the descriptor service and checked against every
already-enrolled face before the employee is registered.`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("id", "", "Employee ID (required)")
	enrollCmd.Flags().String("name", "", "Full name (required)")
	enrollCmd.Flags().String("image", "", "Path to the face photo (required)")
	enrollCmd.Flags().String("department", "", "Department")
	enrollCmd.Flags().String("position", "", "Position")
	enrollCmd.MarkFlagRequired("id")
	enrollCmd.MarkFlagRequired("name")
	enrollCmd.MarkFlagRequired("image")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	imagePath := mustGetString(cmd, "image")
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading photo %s: %w", imagePath, err)
	}

	cfg := config.Load()
	ctx := context.Background()
	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.Close(context.Background())

	emp, err := svcs.recognition.Enroll(ctx, recognition.EnrollRequest{
		EmployeeID: mustGetString(cmd, "id"),
		FullName:   mustGetString(cmd, "name"),
		Department: mustGetString(cmd, "department"),
		Position:   mustGetString(cmd, "position"),
		Image:      base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		var dup *facematch.DuplicateFaceError
		if errors.As(err, &dup) {
			return fmt.Errorf("face already enrolled for employee %s", dup.ConflictingEmployeeID)
		}
		return err
	}

	fmt.Printf("Enrolled %s (%s)\n", emp.FullName, emp.EmployeeID)
	fmt.Printf("  Photo: %s\n", emp.ImagePath)
	return nil
}
