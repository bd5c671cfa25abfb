package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/feelbuddy/internal/api"
	"github.com/kalambet/feelbuddy/internal/config"
	"github.com/kalambet/feelbuddy/internal/feeling"
	"github.com/kalambet/feelbuddy/internal/mood"
	"github.com/kalambet/feelbuddy/internal/quote"
	"github.com/kalambet/feelbuddy/internal/storage"
)

// --- onboard ---

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Create or replace your profile",
	Long: `Create or replace your profile. All three fields are required.

Examples:
  feelbuddy onboard --name Asha --phone 9876543210 --city Bengaluru`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		phone, _ := cmd.Flags().GetString("phone")
		city, _ := cmd.Flags().GetString("city")

		u := feeling.User{Name: name, Phone: phone, City: city}
		if err := feeling.ValidateUser(u); err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/profile", u)
		if err != nil {
			return err
		}
		var saved feeling.User
		if err := decodeJSON(resp, &saved); err != nil {
			return err
		}

		printSuccess("Welcome, %s from %s", saved.Name, saved.City)
		return nil
	},
}

func init() {
	onboardCmd.Flags().String("name", "", "your name")
	onboardCmd.Flags().String("phone", "", "your phone number")
	onboardCmd.Flags().String("city", "Bengaluru", "your city")
}

// --- checkin ---

var checkinCmd = &cobra.Command{
	Use:   "checkin <feeling>",
	Short: "Log how you feel right now",
	Long: `Log how you feel right now. Any label works; catalog labels get their colour.

Examples:
  feelbuddy checkin Happy --intensity 4 --note "great standup"
  feelbuddy checkin Tired -i 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		intensity, _ := cmd.Flags().GetInt("intensity")
		note, _ := cmd.Flags().GetString("note")

		in := feeling.CheckIn{Type: args[0], Intensity: intensity, Note: note}
		if _, err := feeling.NewEntry(in, time.Now()); err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/feelings", in)
		if err != nil {
			return err
		}
		var e feeling.Entry
		if err := decodeJSON(resp, &e); err != nil {
			return err
		}

		printSuccess("Logged %s (%d/5)", labelWithEmoji(e.Type), e.Intensity)
		return nil
	},
}

func init() {
	checkinCmd.Flags().IntP("intensity", "i", 3, "intensity from 1 to 5")
	checkinCmd.Flags().String("note", "", "optional note")
}

func labelWithEmoji(label string) string {
	if t, ok := feeling.Lookup(label); ok {
		return t.Emoji + " " + t.Label
	}
	return label
}

// --- feelings ---

var feelingsCmd = &cobra.Command{
	Use:   "feelings",
	Short: "Browse logged feelings",
}

var feelingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent feelings, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/feelings?limit=%d", limit))
		if err != nil {
			return err
		}
		var entries []feeling.Entry
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			printWarning("No feelings logged yet")
			return nil
		}
		printEntries(cmd.OutOrStdout(), mood.RecentSwings(entries, len(entries)))
		return nil
	},
}

var feelingsCatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the feeling catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, t := range feeling.Catalog {
			fmt.Fprintf(out, "  %s %-10s %s\n", t.Emoji, t.Label, t.Color)
		}
		return nil
	},
}

func init() {
	feelingsListCmd.Flags().Int("limit", 20, "max entries to show")
	feelingsCmd.AddCommand(feelingsListCmd)
	feelingsCmd.AddCommand(feelingsCatalogCmd)
}

func printEntries(w io.Writer, entries []feeling.Entry) {
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-16s %s",
			e.Time().Format("Mon Jan 2 15:04"),
			labelWithEmoji(e.Type),
			intensityBar(e.Intensity))
		if e.Note != "" {
			line += "  " + e.Note
		}
		fmt.Fprintln(w, line)
	}
}

func intensityBar(n int) string {
	n = max(0, min(n, feeling.MaxIntensity))
	return strings.Repeat("●", n) + strings.Repeat("○", feeling.MaxIntensity-n)
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show mood analytics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/stats")
		if err != nil {
			return err
		}
		var report mood.Report
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		printStatus("Stability", "%d%% (%s)", report.Stability, report.StabilityLabel)
		printStatus("Dominant mood", "%s", report.DominantMood)
		printStatus("Entries", "%d", report.TotalEntries)
		if len(report.RecentSwings) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), colorize(colorBold, "Recent swings"))
			printEntries(cmd.OutOrStdout(), report.RecentSwings)
		}
		return nil
	},
}

// --- chart ---

type chartResponse struct {
	Ready  bool         `json:"ready"`
	Points []mood.Point `json:"points"`
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Show the mood flow of your last check-ins",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/chart")
		if err != nil {
			return err
		}
		var chart chartResponse
		if err := decodeJSON(resp, &chart); err != nil {
			return err
		}

		if !chart.Ready {
			printWarning("Add at least 2 feelings to see your flow")
			return nil
		}
		printChart(cmd.OutOrStdout(), chart.Points)
		return nil
	},
}

func printChart(w io.Writer, points []mood.Point) {
	for _, p := range points {
		fmt.Fprintf(w, "  %s %s  %d %-5s %s\n",
			p.Date, p.Time, p.Intensity, strings.Repeat("▇", p.Intensity), p.Type)
	}
}

// --- quote ---

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Show a quote for your latest mood",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/quote")
		if err != nil {
			return err
		}
		var q quote.Quote
		if err := decodeJSON(resp, &q); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", q.Emoji, q.Text)
		return nil
	},
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Buddy (type an empty line or Ctrl-D to leave)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runChat greets the user and relays each line to Buddy, carrying the
// conversation forward between requests.
func runChat(ctx context.Context, client *apiClient, in io.Reader, out io.Writer) error {
	resp, err := client.get(ctx, "/buddy/greeting")
	if err != nil {
		return err
	}
	var greeting struct {
		Greeting string `json:"greeting"`
	}
	if err := decodeJSON(resp, &greeting); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", colorize(colorCyan, "Buddy:"), greeting.Greeting)

	var history []feeling.ChatMessage
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colorize(colorBold, "You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			return nil
		}

		var printedID string
		var printed int
		err := client.stream(ctx, "/buddy/chat", api.ChatRequest{Message: text, History: history}, func(ev api.ChatEvent) {
			if ev.Messages != nil {
				history = ev.Messages
				return
			}
			m := ev.Message
			if m == nil {
				return
			}
			if m.ID != printedID {
				if printedID != "" {
					fmt.Fprintln(out)
				}
				fmt.Fprint(out, colorize(colorCyan, "Buddy: "))
				printedID, printed = m.ID, 0
			}
			if len(m.Text) > printed {
				fmt.Fprint(out, m.Text[printed:])
				printed = len(m.Text)
			}
		})
		if printedID != "" {
			fmt.Fprintln(out)
		}
		if err != nil {
			return err
		}
	}
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export or purge your journal",
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the journal as JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		n, err := exportRecords(cmd.Context(), client, w)
		if err != nil {
			return err
		}
		if output != "" {
			printSuccess("%d records exported to %s", n, output)
		}
		return nil
	},
}

// exportRecords writes one {"type":"record","data":...} line per stored record.
func exportRecords(ctx context.Context, client *apiClient, w io.Writer) (int, error) {
	resp, err := client.get(ctx, "/data/export")
	if err != nil {
		return 0, err
	}
	var records []storage.Record
	if err := decodeJSON(resp, &records); err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(map[string]any{"type": "record", "data": rec}); err != nil {
			return 0, fmt.Errorf("writing export: %w", err)
		}
	}
	return len(records), nil
}

var dataPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete your profile and every logged feeling",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete your profile and ALL logged feelings. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/data")
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("All data purged. Run `feelbuddy onboard` to start over.")
		return nil
	},
}

func init() {
	dataExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	dataPurgeCmd.Flags().Bool("confirm", false, "confirm data purge")
	dataCmd.AddCommand(dataExportCmd)
	dataCmd.AddCommand(dataPurgeCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
