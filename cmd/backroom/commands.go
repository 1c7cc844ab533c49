package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uwillc/backroom/internal/api"
	"github.com/uwillc/backroom/internal/config"
	"github.com/uwillc/backroom/internal/connect"
	"github.com/uwillc/backroom/internal/directory"
	"github.com/uwillc/backroom/internal/profile"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank profiles against a free-text query",
	Long: `Rank profiles against a free-text query.

Examples:
  backroom search "golang mentor fintech"
  backroom search --limit 10 --json design`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/search?q=%s&limit=%d", url.QueryEscape(query), limit)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result api.SearchResult
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if asJSON {
			return printJSON(os.Stdout, result)
		}
		writeSearchResult(os.Stdout, result)
		return nil
	},
}

// writeSearchResult prints a numbered ranking with at most three reasons per hit.
func writeSearchResult(w io.Writer, r api.SearchResult) {
	if len(r.Results) == 0 {
		fmt.Fprintf(w, "No profiles match %q.\n", r.Query)
		return
	}
	fmt.Fprintf(w, "%d match(es) for %q, showing %d\n", r.MatchesFound, r.Query, len(r.Results))
	for i, hit := range r.Results {
		fmt.Fprintf(w, "\n%s %s\n", colorize(colorBold, fmt.Sprintf("%d.", i+1)), hit.Name)
		if hit.Role != "" {
			fmt.Fprintf(w, "   %s\n", hit.Role)
		}
		fmt.Fprintf(w, "   score: %d\n", hit.Score)
		reasons := hit.Reasons
		if len(reasons) > 3 {
			reasons = reasons[:3]
		}
		for _, reason := range reasons {
			fmt.Fprintf(w, "   - %s\n", reason)
		}
		if hit.LinkedIn != "" {
			fmt.Fprintf(w, "   %s\n", colorize(colorCyan, hit.LinkedIn))
		}
	}
}

func init() {
	searchCmd.Flags().Int("limit", 0, "maximum number of results (server default when 0)")
	searchCmd.Flags().Bool("json", false, "print the raw JSON result")
}

// --- category ---

var categoryCmd = &cobra.Command{
	Use:   "category <industry|skills|seeking|offering> <value>",
	Short: "List profiles with a value in one category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/search/%s?value=%s", url.PathEscape(args[0]), url.QueryEscape(args[1]))
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result api.CategoryResult
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if asJSON {
			return printJSON(os.Stdout, result)
		}
		if len(result.Results) == 0 {
			fmt.Printf("No profiles with %s %q.\n", result.Category, result.Value)
			return nil
		}
		for _, hit := range result.Results {
			fmt.Printf("%s  %s  %s\n", colorize(colorCyan, hit.ID), hit.Name, hit.Role)
		}
		return nil
	},
}

func init() {
	categoryCmd.Flags().Bool("json", false, "print the raw JSON result")
}

// --- profiles ---

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List, show, register and update directory profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/profiles")
		if err != nil {
			return err
		}

		var list api.ProfileList
		if err := decodeJSON(resp, &list); err != nil {
			return err
		}
		if list.Count == 0 {
			fmt.Println("No profiles registered.")
			return nil
		}
		for _, p := range list.Profiles {
			fmt.Printf("%s  %s  %s\n", colorize(colorCyan, p.ID), p.Name, p.Role)
		}
		return nil
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/profiles/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var p api.PublicProfile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		return printJSON(os.Stdout, p)
	},
}

var profilesRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new profile",
	Long: `Register a new profile from flags or a JSON file.

Examples:
  backroom profiles register --name "Alice Chen" --role "Staff engineer" --offers mentoring --seeks "design partner"
  backroom profiles register --file alice.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profileFromFlags(cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/profiles", p)
		if err != nil {
			return err
		}

		var created api.PublicProfile
		if err := decodeJSON(resp, &created); err != nil {
			return err
		}
		printSuccess("Registered %s as %s", created.Name, created.ID)
		return nil
	},
}

var profilesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update the given fields of a profile",
	Long: `Update the given fields of a profile. Only flags that are passed are
changed; pass an empty value to clear a field.

Example:
  backroom profiles update alice-chen --role "Principal engineer" --seeks ""`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := updateFromFlags(cmd)
		if u.Empty() {
			return fmt.Errorf("no fields to update; pass at least one field flag")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), "/profiles/"+url.PathEscape(args[0]), u)
		if err != nil {
			return err
		}

		var updated api.PublicProfile
		if err := decodeJSON(resp, &updated); err != nil {
			return err
		}
		printSuccess("Updated %s: %s", updated.ID, strings.Join(u.Fields(), ", "))
		return nil
	},
}

var stringFields = []string{
	"name", "role", "location", "bio", "offer-free", "offer-condition",
	"email", "linkedin", "preferred-contact", "assistant-endpoint",
}

var listFields = []string{"tags", "skills", "offers", "seeks", "industry"}

func addProfileFlags(cmd *cobra.Command) {
	for _, f := range stringFields {
		cmd.Flags().String(f, "", strings.ReplaceAll(f, "-", " "))
	}
	for _, f := range listFields {
		cmd.Flags().StringSlice(f, nil, "comma-separated "+f)
	}
}

func profileFromFlags(cmd *cobra.Command) (directory.Profile, error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return directory.Profile{}, fmt.Errorf("reading profile file: %w", err)
		}
		var f profile.File
		if err := json.Unmarshal(data, &f); err != nil {
			return directory.Profile{}, fmt.Errorf("parsing profile file: %w", err)
		}
		return f.Profile(), nil
	}

	str := func(name string) string { v, _ := cmd.Flags().GetString(name); return v }
	list := func(name string) []string { v, _ := cmd.Flags().GetStringSlice(name); return v }

	p := directory.Profile{
		Name:              str("name"),
		Role:              str("role"),
		Location:          str("location"),
		Bio:               str("bio"),
		Tags:              list("tags"),
		Skills:            list("skills"),
		Offers:            list("offers"),
		Seeks:             list("seeks"),
		Industry:          list("industry"),
		OfferFree:         str("offer-free"),
		OfferCondition:    str("offer-condition"),
		Email:             str("email"),
		LinkedInURL:       str("linkedin"),
		PreferredContact:  str("preferred-contact"),
		AssistantEndpoint: str("assistant-endpoint"),
	}
	if p.Name == "" {
		return directory.Profile{}, fmt.Errorf("--name or --file is required")
	}
	return p, nil
}

func updateFromFlags(cmd *cobra.Command) directory.ProfileUpdate {
	str := func(name string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetString(name)
		return &v
	}
	list := func(name string) *[]string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetStringSlice(name)
		if v == nil {
			v = []string{}
		}
		return &v
	}

	return directory.ProfileUpdate{
		Name:              str("name"),
		Role:              str("role"),
		Location:          str("location"),
		Bio:               str("bio"),
		Tags:              list("tags"),
		Skills:            list("skills"),
		Offers:            list("offers"),
		Seeks:             list("seeks"),
		Industry:          list("industry"),
		OfferFree:         str("offer-free"),
		OfferCondition:    str("offer-condition"),
		Email:             str("email"),
		LinkedInURL:       str("linkedin"),
		PreferredContact:  str("preferred-contact"),
		AssistantEndpoint: str("assistant-endpoint"),
	}
}

func init() {
	addProfileFlags(profilesRegisterCmd)
	profilesRegisterCmd.Flags().String("file", "", "JSON profile file (flat or nested format)")
	addProfileFlags(profilesUpdateCmd)

	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesRegisterCmd)
	profilesCmd.AddCommand(profilesUpdateCmd)
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import *.json profile files directly into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			return fmt.Errorf("--dir is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		profiles, err := profile.LoadDir(dir)
		if err != nil {
			return err
		}
		printStep("Loaded %d profile file(s) from %s", len(profiles), dir)

		ctx := cmd.Context()
		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		res, err := profile.NewManager(store).Import(ctx, profiles)
		if err != nil {
			return err
		}
		writeImportResult(os.Stderr, res)
		return nil
	},
}

func writeImportResult(w io.Writer, res profile.ImportResult) {
	writeMarked(w, colorGreen, markOK, "Imported %d profile(s)", len(res.Imported))
	if len(res.Duplicates) > 0 {
		writeMarked(w, colorYellow, markWarn, "Already registered: %s", strings.Join(res.Duplicates, ", "))
	}
	if res.Skipped > 0 {
		writeMarked(w, colorYellow, markWarn, "Skipped %d profile(s) without a name", res.Skipped)
	}
}

func init() {
	importCmd.Flags().String("dir", "", "directory of *.json profile files")
}

// --- connect ---

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Send and answer connection requests",
}

var connectSendCmd = &cobra.Command{
	Use:   "send <from> <to>",
	Short: "Ask another profile for an introduction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		reason, _ := cmd.Flags().GetString("reason")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/requests", api.SendRequest{
			FromUser: args[0],
			ToUser:   args[1],
			Message:  message,
			Reason:   reason,
		})
		if err != nil {
			return err
		}

		var res connect.SendResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		printSuccess("Request %s sent to %s", res.Request.ID, res.Target.Name)
		return nil
	},
}

var connectIncomingCmd = &cobra.Command{
	Use:   "incoming <user>",
	Short: "Show pending requests addressed to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/requests/incoming?user="+url.QueryEscape(args[0]))
		if err != nil {
			return err
		}

		var res struct {
			Count    int                       `json:"count"`
			Requests []connect.IncomingRequest `json:"requests"`
		}
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		writeIncoming(os.Stdout, res.Requests)
		return nil
	},
}

func writeIncoming(w io.Writer, reqs []connect.IncomingRequest) {
	if len(reqs) == 0 {
		fmt.Fprintln(w, "No pending requests.")
		return
	}
	for _, r := range reqs {
		from := r.From.Name
		if from == "" {
			from = r.From.ID
		}
		fmt.Fprintf(w, "\n%s from %s", colorize(colorCyan, r.Request.ID), colorize(colorBold, from))
		if r.From.Role != "" {
			fmt.Fprintf(w, " (%s)", r.From.Role)
		}
		fmt.Fprintln(w)
		if r.Unresolved != "" {
			fmt.Fprintf(w, "  %s\n", colorize(colorYellow, r.Unresolved))
		}
		if r.Request.Message != "" {
			fmt.Fprintf(w, "  message: %s\n", r.Request.Message)
		}
		if r.Request.Reason != "" {
			fmt.Fprintf(w, "  reason:  %s\n", r.Request.Reason)
		}
	}
}

var connectRespondCmd = &cobra.Command{
	Use:   "respond <request-id>",
	Short: "Accept or decline a pending request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accept, _ := cmd.Flags().GetBool("accept")
		decline, _ := cmd.Flags().GetBool("decline")
		if accept == decline {
			return fmt.Errorf("exactly one of --accept or --decline is required")
		}
		message, _ := cmd.Flags().GetString("message")
		shareEmail, _ := cmd.Flags().GetBool("share-email")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/requests/"+url.PathEscape(args[0])+"/respond", api.RespondRequest{
			Accept:     accept,
			Message:    message,
			ShareEmail: shareEmail,
		})
		if err != nil {
			return err
		}

		var res connect.Response
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		printSuccess("Request %s %s", res.Request.ID, string(res.Request.Status))
		if res.EmailShared {
			printStatus("Shared", "email %s", res.Request.ContactShared["email"])
		}
		return nil
	},
}

var connectSentCmd = &cobra.Command{
	Use:   "sent <user>",
	Short: "Show requests a user has sent and their status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/requests/sent?user="+url.QueryEscape(args[0]))
		if err != nil {
			return err
		}

		var res connect.SentRequests
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		writeSent(os.Stdout, res)
		return nil
	},
}

func writeSent(w io.Writer, res connect.SentRequests) {
	s := res.Summary
	fmt.Fprintf(w, "%d sent: %d pending, %d accepted, %d declined\n", s.Total, s.Pending, s.Accepted, s.Declined)
	for _, r := range res.Requests {
		to := r.To.Name
		if to == "" {
			to = r.To.ID
		}
		fmt.Fprintf(w, "\n%s to %s [%s]\n", colorize(colorCyan, r.Request.ID), colorize(colorBold, to), requestStatus(r.Request.Status))
		if r.Unresolved != "" {
			fmt.Fprintf(w, "  %s\n", colorize(colorYellow, r.Unresolved))
		}
		if r.Request.ResponseMessage != "" {
			fmt.Fprintf(w, "  reply: %s\n", r.Request.ResponseMessage)
		}
		if email := r.Request.ContactShared["email"]; email != "" {
			fmt.Fprintf(w, "  email: %s\n", email)
		}
	}
}

func init() {
	connectSendCmd.Flags().String("message", "", "note to the recipient")
	connectSendCmd.Flags().String("reason", "", "why you want to connect")

	connectRespondCmd.Flags().Bool("accept", false, "accept the request")
	connectRespondCmd.Flags().Bool("decline", false, "decline the request")
	connectRespondCmd.Flags().String("message", "", "reply to the sender")
	connectRespondCmd.Flags().Bool("share-email", false, "share your email with the sender (accept only)")

	connectCmd.AddCommand(connectSendCmd)
	connectCmd.AddCommand(connectIncomingCmd)
	connectCmd.AddCommand(connectRespondCmd)
	connectCmd.AddCommand(connectSentCmd)
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

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "$"+k.EnvVar))
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
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
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
