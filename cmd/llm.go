package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/atozfamily/homescholar/internal/llm"
	"github.com/atozfamily/homescholar/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect model calls made by the research and curriculum stages",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		stage, _ := cmd.Flags().GetString("stage")
		since, _ := cmd.Flags().GetDuration("since")
		failed, _ := cmd.Flags().GetBool("failed")

		if stage != "" && stage != llm.PurposeResearch && stage != llm.PurposeCurriculum {
			return fmt.Errorf("unknown stage %q (want %s or %s)", stage, llm.PurposeResearch, llm.PurposeCurriculum)
		}
		opts := store.QueryOpts{Limit: limit, Purpose: stage}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query model calls: %w", err)
		}
		if failed {
			kept := events[:0]
			for _, e := range events {
				if !e.Success {
					kept = append(kept, e)
				}
			}
			events = kept
		}

		writeCallTable(cmd.OutOrStdout(), events)
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the prompt and reply of one model call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}
		part, _ := cmd.Flags().GetString("part")
		switch part {
		case "all", "request", "response":
		default:
			return fmt.Errorf("unknown part %q (want all, request or response)", part)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get model call: %w", err)
		}
		if e == nil {
			return fmt.Errorf("model call %d not found", id)
		}

		writeCallDetail(cmd.OutOrStdout(), e, part)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage per pipeline stage and the estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		stages, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query stage usage: %w", err)
		}
		models, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}

		writeUsageReport(cmd.OutOrStdout(), stages, models)
		return nil
	},
}

// stageLabel names the pipeline stage a purpose label belongs to.
func stageLabel(purpose string) string {
	switch purpose {
	case llm.PurposeResearch:
		return "Research"
	case llm.PurposeCurriculum:
		return "Curriculum"
	case "":
		return "(unlabelled)"
	}
	return purpose
}

func writeCallTable(w io.Writer, events []store.LLMRequestEventRecord) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No model calls recorded.")
		return
	}

	fmt.Fprintf(w, "%-5s  %-12s  %-10s  %-24s  %-13s  %7s  %s\n",
		"ID", "When", "Stage", "Model", "Tokens in/out", "Time", "Result")
	fmt.Fprintln(w, strings.Repeat("─", 92))
	for _, e := range events {
		result := "ok"
		if !e.Success {
			result = "failed"
			if e.ErrorMessage != "" {
				result += ": " + truncate(e.ErrorMessage, 30)
			}
		}
		fmt.Fprintf(w, "%-5d  %-12s  %-10s  %-24s  %-13s  %7s  %s\n",
			e.ID,
			e.Timestamp.Local().Format("Jan 02 15:04"),
			stageLabel(e.Purpose),
			truncate(e.Model, 24),
			fmt.Sprintf("%d/%d", e.InputTokens, e.OutputTokens),
			formatLatency(e.LatencyMs),
			result,
		)
	}
}

func writeCallDetail(w io.Writer, e *store.LLMRequestEventRecord, part string) {
	status := "succeeded"
	if !e.Success {
		status = "failed"
	}
	fmt.Fprintf(w, "Call %d: %s stage, %s\n", e.ID, stageLabel(e.Purpose), status)
	fmt.Fprintf(w, "  %s via %s at %s\n", e.Model, e.Provider, e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  %d tokens in, %d out, %s\n", e.InputTokens, e.OutputTokens, formatLatency(e.LatencyMs))
	if e.ErrorMessage != "" {
		fmt.Fprintf(w, "  error: %s\n", e.ErrorMessage)
	}

	section := func(title, body string) {
		fmt.Fprintf(w, "\n── %s %s\n", title, strings.Repeat("─", max(56-len(title), 4)))
		if body == "" {
			body = "(not captured)"
		}
		fmt.Fprintln(w, body)
	}
	if part != "response" {
		section("Prompt", e.RequestBody)
	}
	if part != "request" {
		section("Reply", e.ResponseBody)
	}
}

func writeUsageReport(w io.Writer, stages []store.LLMUsageStats, models []store.LLMModelUsage) {
	if len(stages) == 0 {
		fmt.Fprintln(w, "No model usage recorded yet.")
		return
	}

	var totalTokens int
	for _, st := range stages {
		totalTokens += st.InputTokens + st.OutputTokens
	}

	fmt.Fprintln(w, "Pipeline stages")
	fmt.Fprintln(w, strings.Repeat("─", 72))
	fmt.Fprintf(w, "%-14s  %6s  %12s  %12s  %9s  %6s\n",
		"Stage", "Calls", "Tokens", "Per call", "Avg time", "Share")
	fmt.Fprintln(w, strings.Repeat("─", 72))

	curriculumCalls := 0
	for _, st := range stages {
		tokens := st.InputTokens + st.OutputTokens
		perCall := 0
		if st.Calls > 0 {
			perCall = tokens / st.Calls
		}
		share := 0.0
		if totalTokens > 0 {
			share = 100 * float64(tokens) / float64(totalTokens)
		}
		fmt.Fprintf(w, "%-14s  %6d  %12d  %12d  %9s  %5.1f%%\n",
			stageLabel(st.Purpose), st.Calls, tokens, perCall, formatLatency(st.AvgLatencyMs), share)
		if st.Purpose == llm.PurposeCurriculum {
			curriculumCalls = st.Calls
		}
	}

	if len(models) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Estimated cost (USD)")
	fmt.Fprintln(w, strings.Repeat("─", 72))

	var total float64
	var unpriced []string
	for _, mu := range models {
		cost := llm.LookupCost(mu.Model)
		if cost == nil {
			unpriced = append(unpriced, mu.Model)
			fmt.Fprintf(w, "%-32s  %6d calls  %12s\n", truncate(mu.Model, 32), mu.Calls, "?")
			continue
		}
		c := cost.Cost(mu.InputTokens, mu.OutputTokens)
		total += c
		fmt.Fprintf(w, "%-32s  %6d calls  %12s\n", truncate(mu.Model, 32), mu.Calls, formatCost(c))
	}
	fmt.Fprintln(w, strings.Repeat("─", 72))

	label := "Total"
	if len(unpriced) > 0 {
		label = "Total (partial)"
	}
	fmt.Fprintf(w, "%-32s  %12s  %12s\n", label, "", formatCost(total))
	// Every generated curriculum is one curriculum-stage call; research
	// runs before it are part of its cost.
	if curriculumCalls > 0 {
		fmt.Fprintf(w, "%-32s  %12s  %12s\n", "Per curriculum", "", formatCost(total/float64(curriculumCalls)))
	}
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nPricing unavailable for: %s\n", strings.Join(unpriced, ", "))
	}
}

func formatLatency(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("stage", "s", "", "Only show one stage (research or curriculum)")
	llmListCmd.Flags().Duration("since", 0, "Only show calls newer than this, e.g. 24h")
	llmListCmd.Flags().Bool("failed", false, "Only show failed calls")
	llmViewCmd.Flags().String("part", "all", "Which part to print: all, request or response")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
