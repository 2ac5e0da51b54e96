package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "race_check",
	Short: "Hammer course registration with concurrent requests and verify the seat invariants",
	Long: `race_check fires many concurrent registrations and drops at a single course and then
checks that capacity and the reserve limit held, reserve positions stayed contiguous and no
student holds two registrations. "simulate" drives the engine in-process; "remote" drives a
running API seeded by "seed".`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newSimulateCmd(), newRemoteCmd(), newSeedCmd())
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("race_check: %v", err)
	}
}
