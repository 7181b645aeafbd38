package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/clipd/internal/config"
)

// --- search ---

type listItem struct {
	ID          int64  `json:"id"`
	CreatedAt   int64  `json:"createdAt"`
	Kind        string `json:"kind"`
	PreviewText string `json:"previewText"`
	Favorite    bool   `json:"favorite"`
	Pinned      bool   `json:"pinned"`
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the clipboard history",
	Long: `Search the clipboard history. With no query, lists recent items
(pinned first). Each query term matches as a prefix.

Examples:
  clipd search
  clipd search docker compose
  clipd search deploy --limit 50
  clipd search --filter favorites`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		filter, _ := cmd.Flags().GetString("filter")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/items?q=%s&limit=%d&offset=%d&filter=%s",
			url.QueryEscape(query), limit, offset, url.QueryEscape(filter))
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var res struct {
			Total int        `json:"total"`
			Items []listItem `json:"items"`
		}
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}

		if len(res.Items) == 0 {
			fmt.Println("No items found.")
			return nil
		}

		for _, it := range res.Items {
			printItemLine(it)
		}
		if res.Total > offset+len(res.Items) {
			fmt.Printf("\nShowing %d of %d items.\n", len(res.Items), res.Total)
		}
		return nil
	},
}

func printItemLine(it listItem) {
	created := time.UnixMilli(it.CreatedAt).Format("2006-01-02 15:04")
	var marks string
	if it.Pinned {
		marks += colorize(colorYellow, " [pinned]")
	}
	if it.Favorite {
		marks += colorize(colorYellow, " [favorite]")
	}
	fmt.Printf("%s  %s  %s%s\n",
		colorize(colorCyan, fmt.Sprintf("%5d", it.ID)), created, it.PreviewText, marks)
}

func init() {
	searchCmd.Flags().Int("limit", 20, "maximum number of results")
	searchCmd.Flags().Int("offset", 0, "number of results to skip")
	searchCmd.Flags().String("filter", "all", "restrict to 'favorites' or 'pinned'")
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one history item",
	Long: `Print one history item. Text and file items print their full stored
text to stdout, so the output can be piped. Use --json for the raw record.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/items/"+args[0])
		if err != nil {
			return err
		}

		if asJSON {
			var item any
			if err := decodeJSON(resp, &item); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(item)
		}

		var item struct {
			Kind        string `json:"kind"`
			Text        string `json:"text"`
			ImageWidth  *int64 `json:"imageWidth"`
			ImageHeight *int64 `json:"imageHeight"`
		}
		if err := decodeJSON(resp, &item); err != nil {
			return err
		}

		if item.Kind == "image" {
			var w, h int64
			if item.ImageWidth != nil {
				w = *item.ImageWidth
			}
			if item.ImageHeight != nil {
				h = *item.ImageHeight
			}
			fmt.Printf("[image %dx%d]\n", w, h)
			return nil
		}
		fmt.Println(item.Text)
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "print the raw item record as JSON")
}

// --- restore / open ---

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Put a history item back on the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/items/"+args[0]+"/restore", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Restored item %s to the clipboard", args[0])
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <id>",
	Short: "Open a file or path item with the system handler",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/items/"+args[0]+"/open", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Opened item %s", args[0])
		return nil
	},
}

// --- favorite / pin ---

var favoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Mark a history item as favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setItemFlag(cmd, args[0], "favorite")
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin <id>",
	Short: "Pin a history item to the top of the list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setItemFlag(cmd, args[0], "pinned")
	},
}

func setItemFlag(cmd *cobra.Command, id, flag string) error {
	remove, _ := cmd.Flags().GetBool("remove")

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	body := map[string]any{"value": !remove}
	resp, err := client.put(cmd.Context(), "/items/"+id+"/"+flag, body)
	if err != nil {
		return err
	}

	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	if remove {
		printSuccess("Removed %s from item %s", flag, id)
	} else {
		printSuccess("Marked item %s as %s", id, flag)
	}
	return nil
}

func init() {
	favoriteCmd.Flags().Bool("remove", false, "remove the favorite mark instead")
	pinCmd.Flags().Bool("remove", false, "unpin the item instead")
}

// --- delete / clear ---

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a history item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/items/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted item %s", args[0])
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the clipboard history",
	Long: `Clear the clipboard history. Pinned and favorite items are kept
unless --all is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		confirm, _ := cmd.Flags().GetBool("confirm")

		if all && !confirm {
			printWarning("This deletes pinned and favorite items too. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/history/clear", map[string]any{"all": all})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if all {
			printSuccess("Cleared all history")
		} else {
			printSuccess("Cleared history (pinned and favorite items kept)")
		}
		return nil
	},
}

func init() {
	clearCmd.Flags().Bool("all", false, "also delete pinned and favorite items")
	clearCmd.Flags().Bool("confirm", false, "confirm deleting pinned and favorite items")
}

// --- pause ---

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Toggle clipboard capture on or off",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/capture/pause", nil)
		if err != nil {
			return err
		}

		var result struct {
			Paused bool `json:"paused"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Paused {
			printSuccess("Capture paused")
		} else {
			printSuccess("Capture resumed")
		}
		return nil
	},
}

// --- settings ---

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update daemon settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/settings")
		if err != nil {
			return err
		}

		var settings any
		if err := decodeJSON(resp, &settings); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(settings)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Update one setting",
	Long: `Update one setting on the running daemon.

Examples:
  clipd settings set polling_interval_ms 250
  clipd settings set capture_enabled false
  clipd settings set hotkey "Cmd+Shift+V"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, raw := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"key": key, "value": settingValue(raw)}
		resp, err := client.patch(cmd.Context(), "/settings", body)
		if err != nil {
			return err
		}

		var updated map[string]any
		if err := decodeJSON(resp, &updated); err != nil {
			return err
		}

		// Echo the effective value so clamping is visible.
		printSuccess("Set %s = %v", key, updated[key])
		return nil
	},
}

// settingValue turns a CLI argument into a typed JSON value: numbers and
// booleans pass through as JSON, anything else is sent as a string.
func settingValue(raw string) json.RawMessage {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	b, _ := json.Marshal(raw)
	return b
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

// --- watch ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow daemon events",
	Long:  "Follow daemon events as they happen (new items, pause toggles). Ctrl-C to stop.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.stream(cmd.Context(), "/events")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		scanner := bufio.NewScanner(resp.Body)
		var event string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				if out := formatEvent(event, strings.TrimPrefix(line, "data: ")); out != "" {
					fmt.Println(out)
				}
			}
		}
		return scanner.Err()
	},
}

// formatEvent renders one SSE event as a display line. Unknown events pass
// through raw so newer daemons stay visible to older clients.
func formatEvent(name, data string) string {
	switch name {
	case "item_added":
		var ev struct {
			ID          int64  `json:"id"`
			PreviewText string `json:"previewText"`
			CreatedAt   int64  `json:"createdAt"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return ""
		}
		ts := time.UnixMilli(ev.CreatedAt).Format("15:04:05")
		return fmt.Sprintf("%s  %s  %s", ts, colorize(colorCyan, fmt.Sprintf("#%d", ev.ID)), ev.PreviewText)
	case "paused_changed":
		var ev struct {
			Paused bool `json:"paused"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return ""
		}
		if ev.Paused {
			return colorize(colorYellow, "capture paused")
		}
		return colorize(colorGreen, "capture resumed")
	default:
		return fmt.Sprintf("%s %s", name, data)
	}
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update daemon configuration",
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
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
