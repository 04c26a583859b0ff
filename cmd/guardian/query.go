package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/guardian/pkg/domain"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a natural-language query against the configured databases",
	Long: `Submits a question to the Guardian engine and prints the answer.

If the planner proposes a database mutation, the command suspends and asks for
an approve/reject/edit decision on the terminal before resuming.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		eng, cleanup, err := buildEngine(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		text := strings.Join(args, " ")
		session, err := eng.Start(cmd.Context(), text)
		if err != nil {
			return err
		}

		reader := bufio.NewScanner(os.Stdin)
		for session.Status == domain.StatusWaitingForApproval {
			decision, err := promptDecision(reader, session)
			if err != nil {
				return err
			}
			session, err = eng.Resume(cmd.Context(), session.ID, decision)
			if err != nil {
				return err
			}
		}

		printOutcome(session)
		if session.Status == domain.StatusFailed {
			os.Exit(1)
		}
		return nil
	},
}

func promptDecision(reader *bufio.Scanner, session *domain.Session) (domain.Decision, error) {
	fmt.Println("\n=== APPROVAL REQUIRED ===")
	fmt.Printf("Category: %s\n", session.PendingCategory)
	if action := session.PendingAction; action != nil {
		if action.Action != nil {
			fmt.Printf("Capability: %s\n", action.Action.Capability)
			fmt.Printf("Payload: %s\n", action.Action.Input.QueryText())
		} else if action.Answer != nil {
			fmt.Printf("Proposed answer: %s\n", action.Answer.Text)
		}
	}

	for {
		fmt.Print("\nDecision [approve/reject/edit]: ")
		if !reader.Scan() {
			return domain.Decision{}, fmt.Errorf("no decision received: %w", reader.Err())
		}
		kind := domain.DecisionKind(strings.ToLower(strings.TrimSpace(reader.Text())))
		if !kind.Valid() {
			fmt.Println("Please answer 'approve', 'reject', or 'edit'.")
			continue
		}

		decision := domain.Decision{Kind: kind}
		if kind == domain.DecisionEdit {
			fmt.Print("Replacement query: ")
			if !reader.Scan() {
				return domain.Decision{}, fmt.Errorf("no replacement received: %w", reader.Err())
			}
			decision.ModifiedQuery = strings.TrimSpace(reader.Text())
			if decision.ModifiedQuery == "" {
				fmt.Println("Replacement query cannot be empty.")
				continue
			}
		}
		return decision, nil
	}
}

func printOutcome(session *domain.Session) {
	switch session.Status {
	case domain.StatusCompleted:
		if session.Summary != "" {
			fmt.Println("\n" + session.Summary)
		}
		if session.LastResult != nil {
			if data, err := json.MarshalIndent(session.LastResult, "", "  "); err == nil {
				fmt.Println(string(data))
			}
		}
	case domain.StatusFailed:
		fmt.Printf("\nSession failed: %s\n", session.Summary)
	default:
		fmt.Printf("\nSession %s is %s\n", session.ID, session.Status)
	}
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
