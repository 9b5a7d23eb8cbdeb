package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vishwar23/portfolio/internal/config"
	"github.com/vishwar23/portfolio/internal/contact"
	"github.com/vishwar23/portfolio/internal/content"
	"github.com/vishwar23/portfolio/internal/logging"
	"github.com/vishwar23/portfolio/internal/server"
	"github.com/vishwar23/portfolio/internal/store"
)

var (
	configFile string
	verbose    bool
	copyLabel  string
)

func main() {
	root := &cobra.Command{
		Use:          "portfolio",
		Short:        "Personal portfolio site with a contact form",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (env and .env are always read)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE:  runServe,
	})

	card := &cobra.Command{
		Use:   "card",
		Short: "Print the bio and contact card",
		RunE:  runCard,
	}
	card.Flags().StringVar(&copyLabel, "copy", "", "copy a contact value (e.g. Email, Phone) to the clipboard")
	root.AddCommand(card)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DBPath, logger.Named("store"))
	if err != nil {
		logger.Error("Failed to initialize database", zap.Error(err))
		return err
	}
	defer db.Close()

	portfolio, err := content.Load()
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, logger, db, portfolio)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func runCard(cmd *cobra.Command, _ []string) error {
	_, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	portfolio, err := content.Load()
	if err != nil {
		return err
	}

	if copyLabel != "" {
		return copyContact(cmd.OutOrStdout(), portfolio, contact.SystemClipboard{}, logger, copyLabel)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(cardMarkdown(portfolio))
	if err != nil {
		return fmt.Errorf("render card: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// copyContact goes through a contact controller so the terminal gets the
// same copy behavior and logging as the page.
func copyContact(w io.Writer, portfolio *content.Portfolio, clip contact.Clipboard, logger *zap.Logger, label string) error {
	info, ok := portfolio.ContactByLabel(label)
	if !ok {
		return fmt.Errorf("no contact entry named %q", label)
	}

	ctrl := contact.New(contact.Options{
		Storage:   contact.NewMemoryStorage(),
		Clipboard: clip,
		Logger:    logger,
	})
	defer ctrl.Close()

	if err := ctrl.CopyToClipboard(info.Copy, info.Label); err != nil {
		return fmt.Errorf("copy %s: %w", info.Label, err)
	}
	fmt.Fprintf(w, "Copied %s to the clipboard\n", info.Label)
	return nil
}

func cardMarkdown(p *content.Portfolio) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n_%s_\n\n", content.Owner, content.Tagline)
	for _, para := range content.AboutMe {
		b.WriteString(strings.Join(strings.Fields(para), " "))
		b.WriteString("\n\n")
	}

	b.WriteString("## Facts\n\n")
	for _, f := range p.Facts {
		fmt.Fprintf(&b, "- **%s:** %s\n", f.Label, f.Value)
	}

	b.WriteString("\n## Skills\n\n")
	for _, g := range p.SkillGroups() {
		names := make([]string, 0, len(g.Skills))
		for _, s := range g.Skills {
			names = append(names, s.Name)
		}
		fmt.Fprintf(&b, "- **%s:** %s\n", g.Category, strings.Join(names, ", "))
	}

	b.WriteString("\n## Contact\n\n")
	for _, c := range p.Contact {
		fmt.Fprintf(&b, "- **%s:** %s\n", c.Label, c.Value)
	}
	for _, l := range p.Social {
		fmt.Fprintf(&b, "- [%s](%s)\n", l.Label, l.Href)
	}
	return b.String()
}
