package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/venudhannoju-glitch/ChitChat/internal/chatclient"
	"github.com/venudhannoju-glitch/ChitChat/internal/config"
	"github.com/venudhannoju-glitch/ChitChat/internal/session"
	"github.com/venudhannoju-glitch/ChitChat/internal/signaling"
	"github.com/venudhannoju-glitch/ChitChat/internal/ui"
)

var (
	flagServer string
	flagCreate bool
	flagJoin   string
	flagCodec  string
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"c"},
	Short:   "Open an interactive chat session",
	Long: `Connect to a ChitChat server and chat from the terminal.

Inside the session, /create opens a new room, /join CODE joins one and /leave
leaves the current room.

Examples:
  chitchat chat --create
  chitchat chat --join 4821
  chitchat chat --server wss://chat.example.com/ws --codec msgpack`,
	RunE: func(cmd *cobra.Command, args []string) error {
		code := strings.TrimSpace(flagJoin)
		if cmd.Flags().Changed("join") && !session.ValidCode(code) {
			return errors.New("please enter a valid 4-digit code")
		}
		return runChat(cmd, code)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&flagServer, "server", "s", "", "server WebSocket URL (env CHITCHAT_SERVER, default "+config.DefaultServerURL+")")
	chatCmd.Flags().BoolVar(&flagCreate, "create", false, "create a room on connect")
	chatCmd.Flags().StringVarP(&flagJoin, "join", "j", "", "join the room with this code on connect")
	chatCmd.Flags().StringVar(&flagCodec, "codec", "json", "wire encoding: json or msgpack")
	chatCmd.MarkFlagsMutuallyExclusive("create", "join")

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, code string) error {
	cfg, err := config.LoadClient(flagServer)
	if err != nil {
		return err
	}
	codec, err := signaling.CodecByName(flagCodec)
	if err != nil {
		return err
	}

	sp := ui.NewConnectionSpinner(os.Stderr, "Connecting to "+cfg.ServerURL+"...")
	sp.Start()
	client, err := chatclient.Dial(cmd.Context(), cfg.ServerURL, chatclient.Options{
		Codec:    codec,
		Resolver: chatclient.NewResolver(),
	})
	if err != nil {
		sp.Error("Could not reach the server")
		return err
	}
	defer client.Close()
	sp.Success("Connected")

	model := ui.NewChatModel(client, ui.ChatOptions{Create: flagCreate, Join: code})
	p := tea.NewProgram(model, tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat ui: %w", err)
	}

	if err := client.Err(); err != nil && !isNormalClose(err) {
		ui.PrintWarning(os.Stderr, "connection ended: "+err.Error())
	}
	return nil
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
