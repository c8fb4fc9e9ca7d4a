package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"novel_crafter/assistant"
	"novel_crafter/config"
	"novel_crafter/imagesearch"
	"novel_crafter/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config server_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	llm, err := buildLLM(cfg.LLM)
	if err != nil {
		return err
	}
	agent, err := assistant.NewAgent(llm)
	if err != nil {
		return err
	}
	images := imagesearch.New(imagesearch.Config{
		PexelsAPIKey:  cfg.Images.PexelsAPIKey,
		PixabayAPIKey: cfg.Images.PixabayAPIKey,
	}, nil, logger.Named("imagesearch"))

	srv, err := server.New(cfg, newProcessor(cfg, logger), agent, images, logger.Named("server"))
	if err != nil {
		return err
	}

	listen := cfg.ServerAddr
	if serveAddr != "" {
		listen = serveAddr
	}
	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting web server", zap.String("addr", listen), zap.String("llm", cfg.LLM.Provider))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildLLM picks the assistant backend. Without a provider or key the local
// mock answers.
func buildLLM(c config.LLMConfig) (assistant.LLMClient, error) {
	settings := &assistant.LLMSettings{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
	switch c.Provider {
	case "", "mock":
		return assistant.MockLLM{}, nil
	case "openai":
		return assistant.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// OpenAI-compatible endpoint.
		if c.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return assistant.NewOpenAILLMFromConfig(settings)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", c.Provider)
	}
}
