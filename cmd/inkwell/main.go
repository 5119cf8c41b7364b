package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/inkwell/internal/mockserver"
	"github.com/go-go-golems/inkwell/pkg/chat"
	"github.com/go-go-golems/inkwell/pkg/client"
	"github.com/go-go-golems/inkwell/pkg/events"
	"github.com/go-go-golems/inkwell/pkg/logging"
	"github.com/go-go-golems/inkwell/pkg/render"
	"github.com/go-go-golems/inkwell/pkg/ui"
)

var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Terminal client for the writing-agent chat stream",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(viper.GetString("log-level"))
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open a live chat with the agent backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context(), viper.GetString("server"), viper.GetBool("plain"))
	},
}

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Serve a scripted agent stream for demos",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mockserver.NewServer(viper.GetString("addr")).Start()
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "zerolog level (trace, debug, info, warn, error)")
	chatCmd.Flags().String("server", "http://localhost:5001", "agent backend base URL")
	chatCmd.Flags().Bool("plain", false, "disable markdown rendering")
	mockServerCmd.Flags().String("addr", ":5001", "listen address")

	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("server", chatCmd.Flags().Lookup("server"))
	_ = viper.BindPFlag("plain", chatCmd.Flags().Lookup("plain"))
	_ = viper.BindPFlag("addr", mockServerCmd.Flags().Lookup("addr"))

	viper.SetEnvPrefix("INKWELL")
	viper.AutomaticEnv()

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mockServerCmd)
}

func runChat(ctx context.Context, serverURL string, plain bool) error {
	router, err := events.NewEventRouter()
	if err != nil {
		return errors.Wrap(err, "could not create event router")
	}
	defer func() {
		_ = router.Close()
	}()

	distributor := events.NewDistributor()
	distributor.Attach(events.SnapshotTopic, router.Publisher)
	distributor.Attach(events.NotificationTopic, router.Publisher)

	session := chat.NewSession(
		chat.WithPublisher(distributor),
		chat.WithNotifier(ui.NewRouterNotifier(distributor)),
	)
	cl := client.NewClient(serverURL, session)

	var renderer render.Renderer = render.PlainRenderer{}
	if !plain && isatty.IsTerminal(os.Stdout.Fd()) {
		md, err := render.NewMarkdownRenderer(100)
		if err != nil {
			return err
		}
		renderer = md
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend := ui.NewBackend(ctx, cl)
	p := tea.NewProgram(ui.NewModel(backend, renderer))

	router.AddHandler("ui-snapshot-forward", events.SnapshotTopic, ui.SnapshotForwardFunc(p))
	router.AddHandler("ui-notification-forward", events.NotificationTopic, ui.NotificationForwardFunc(p))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return router.Run(egCtx)
	})
	eg.Go(func() error {
		<-router.Running()
		_, err := p.Run()
		cancel()
		return err
	})

	return eg.Wait()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
