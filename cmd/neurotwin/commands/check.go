package commands

import (
	"errors"
	"fmt"
	"os"

	domaincfg "neurotwin-backend/domain/config"
	"neurotwin-backend/interfaces/http/rest/handlers"
	pkgerrors "neurotwin-backend/pkg/errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	checkGood = color.New(color.FgGreen)
	checkBad  = color.New(color.FgRed, color.Bold)
	checkDim  = color.New(color.Faint)
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <graph.json>",
		Short: "Validate a graph document without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0])
		},
	}
}

func runCheck(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		checkBad.Fprintf(os.Stderr, "✗ cannot read %s: %v\n", path, err)
		return err
	}

	graph, err := handlers.ParseGraphDocument(data, domaincfg.DefaultDomainConfig())
	if err != nil {
		checkBad.Fprintf(os.Stderr, "✗ %s is not a valid graph\n", path)
		var appErr *pkgerrors.AppError
		if errors.As(err, &appErr) && appErr.Field != "" {
			checkDim.Fprintf(os.Stderr, "  field %s: %s\n", appErr.Field, appErr.Message)
		} else {
			checkDim.Fprintf(os.Stderr, "  %v\n", err)
		}
		return err
	}

	checkGood.Printf("✓ %s is a valid graph\n", path)
	fmt.Printf("  regions:     %d\n", graph.RegionCount())
	fmt.Printf("  connections: %d\n", graph.ConnectionCount())
	if graph.PatientID() != "" {
		fmt.Printf("  patient:     %s\n", graph.PatientID())
	}
	return nil
}
