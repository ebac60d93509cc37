package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arloliu/go-kotel/boiler"
	"github.com/arloliu/go-kotel/exchange"
	"github.com/arloliu/go-kotel/logger"
	"github.com/arloliu/go-kotel/token"
)

// wrap is the number of characters the help text is wrapped at
const wrap = 50

// wrapString wraps text at wrap characters
func wrapString(text string) string {
	var lines []string
	var line strings.Builder

	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}

	return strings.Join(lines, "\n")
}

func setupClientFlags(cmd *cobra.Command) {
	key := "url"
	cmd.PersistentFlags().String(key, "http://kotel.local/", wrapString("Address of the device's web page"))

	key = "state-file"
	cmd.PersistentFlags().String(key, defaultStateFile(), wrapString("File keeping the token issued by the device"))

	key = "timeout"
	cmd.PersistentFlags().Duration(key, 10*time.Second, wrapString("Time limit of a single command"))

	key = "idle-timeout"
	cmd.PersistentFlags().Duration(key, 10*time.Second, wrapString("Drop the connection after this much silence while a reply is expected"))

	key = "open-timeout"
	cmd.PersistentFlags().Duration(key, 10*time.Second, wrapString("Give up a connection attempt after this long"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", wrapString("Log level (debug, info, warn, error)"))
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "kotelctl.db"
	}

	return filepath.Join(dir, "kotelctl", "state.db")
}

// initConfig initializes configuration from env files and environment variables
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("kotel")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// session is what a command works with: the controller and the storage behind its token.
type session struct {
	ctrl    *boiler.Controller
	storage *token.BoltStorage
	tokens  *token.Store
	log     logger.Logger
}

func (s *session) close() {
	if s.ctrl != nil {
		_ = s.ctrl.Close()
	}
	if err := s.storage.Close(); err != nil {
		s.log.Warn("failed to close state file", "error", err)
	}
}

func newLogger() logger.Logger {
	level, ok := logger.ParseLevel(viper.GetString("log-level"))
	if !ok {
		level = logger.WarnLevel
	}

	l := logger.NewSlog(level, false)
	logger.SetLevel(level)

	return l
}

func openStorage() (*token.BoltStorage, error) {
	path := viper.GetString("state-file")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	return token.OpenBoltStorage(path)
}

// openSession binds the command flags and connects a controller to the configured device.
func openSession(cmd *cobra.Command, opts ...boiler.ControllerOption) (*session, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	s := &session{log: newLogger()}

	var err error
	if s.storage, err = openStorage(); err != nil {
		return nil, err
	}
	if s.tokens, err = token.NewStore(s.storage); err != nil {
		_ = s.storage.Close()
		return nil, err
	}

	pageURL := viper.GetString("url")
	pairing := &boiler.Pairing{BaseURL: pageURL}

	base := []boiler.ControllerOption{
		boiler.WithLogger(s.log),
		boiler.WithClientOptions(
			exchange.WithTokenStore(s.tokens),
			exchange.WithIdleTimeout(viper.GetDuration("idle-timeout")),
			exchange.WithOpenTimeout(viper.GetDuration("open-timeout")),
			exchange.WithOnTokenRequired(pairing.TokenHook(promptCode)),
		),
	}

	s.ctrl, err = boiler.NewController(context.Background(), &exchange.WebSocketDialer{URL: pageURL}, append(base, opts...)...)
	if err != nil {
		s.close()
		return nil, err
	}

	return s, nil
}

// withSession runs fn with a connected session and a context limited by --timeout.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
	defer cancel()

	return fn(ctx, s)
}

// promptCode asks for the code shown on the device display.
func promptCode(ctx context.Context) (string, error) {
	fmt.Fprint(os.Stderr, "Enter the code shown on the boiler display: ")

	line := make(chan string, 1)
	go func() {
		text, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		line <- text
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text := <-line:
		return boiler.NormalizeCode(text)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}

	return "off"
}
