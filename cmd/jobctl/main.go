// jobctl submits generation jobs to a running proxy instance and follows
// them from the terminal. SIGINT cancels the attempt cleanly instead of
// leaving the job record dangling.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sorahub/internal/infra"
	"sorahub/internal/job"
	"sorahub/internal/runner"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	var code int
	switch os.Args[1] {
	case "video":
		code = runVideo(cfg, logger, os.Args[2:])
	case "image":
		code = runImage(cfg, logger, os.Args[2:])
	case "chat":
		code = runChat(cfg, logger, os.Args[2:])
	case "watch":
		code = runWatch(cfg, logger, os.Args[2:])
	default:
		usage()
		code = 2
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: jobctl <command> [flags]

commands:
  video   submit a sora video job and follow it
  image   submit a nano-banana image job and follow it
  chat    relay a chat prompt and stream the answer
  watch   follow an already submitted job by request id`)
}

type commonFlags struct {
	server string
	locale string
}

func addCommon(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.server, "server", "http://localhost:8080", "proxy base URL")
	fs.StringVar(&c.locale, "locale", os.Getenv("LANG"), "locale for error notices")
	return c
}

func runVideo(cfg *infra.Config, logger infra.Logger, args []string) int {
	fs := flag.NewFlagSet("video", flag.ExitOnError)
	common := addCommon(fs)
	prompt := fs.String("prompt", "", "generation prompt")
	aspect := fs.String("aspect", "9:16", "aspect ratio")
	duration := fs.Int("duration", 15, "clip duration in seconds")
	size := fs.String("size", "small", "render size")
	_ = fs.Parse(args)

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "jobctl: -prompt is required")
		return 2
	}

	fields := map[string]string{
		"prompt":      *prompt,
		"aspectRatio": *aspect,
		"duration":    strconv.Itoa(*duration),
		"size":        *size,
	}
	requestID, err := submitForm(common.server+"/api/video/sora", fields)
	if err != nil {
		logger.Error().Err(err).Msg("submission failed")
		return 1
	}
	fmt.Println("request_id:", requestID)
	return follow(cfg, logger, common, job.KindVideo, requestID)
}

func runImage(cfg *infra.Config, logger infra.Logger, args []string) int {
	fs := flag.NewFlagSet("image", flag.ExitOnError)
	common := addCommon(fs)
	prompt := fs.String("prompt", "", "generation prompt")
	model := fs.String("model", "nano-banana-pro", "image model")
	aspect := fs.String("aspect", "auto", "aspect ratio")
	imageSize := fs.String("image-size", "1K", "output resolution")
	_ = fs.Parse(args)

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "jobctl: -prompt is required")
		return 2
	}

	fields := map[string]string{
		"prompt":      *prompt,
		"model":       *model,
		"aspectRatio": *aspect,
		"imageSize":   *imageSize,
	}
	requestID, err := submitForm(common.server+"/api/image/nano-banana", fields)
	if err != nil {
		logger.Error().Err(err).Msg("submission failed")
		return 1
	}
	fmt.Println("request_id:", requestID)
	return follow(cfg, logger, common, job.KindImage, requestID)
}

func runChat(cfg *infra.Config, logger infra.Logger, args []string) int {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	common := addCommon(fs)
	prompt := fs.String("prompt", "", "chat prompt")
	conversation := fs.String("conversation", "default", "conversation id")
	_ = fs.Parse(args)

	if *prompt == "" {
		fmt.Fprintln(os.Stderr, "jobctl: -prompt is required")
		return 2
	}

	machine := job.NewMachine(job.KindChat, common.locale)
	attempt := runner.NewAttempt(context.Background(), machine)
	cancelOnSignal(attempt)

	if err := machine.Begin(*conversation); err != nil {
		logger.Error().Err(err).Msg("begin failed")
		return 1
	}

	payload, _ := json.Marshal(map[string]any{
		"prompt":          *prompt,
		"conversation_id": *conversation,
		"stream_delta":    true,
	})
	req, err := http.NewRequestWithContext(attempt.Context(), http.MethodPost, common.server+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		logger.Error().Err(err).Msg("building request failed")
		return 1
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: cfg.StreamTimeout}
	resp, err := client.Do(req)
	if err != nil {
		machine.Fail(job.CategoryNetworkFailed, err.Error())
		return report(machine)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		machine.Fail(job.CategoryGenericWithDetail, fmt.Sprintf("status %d", resp.StatusCode))
		return report(machine)
	}

	if err := runner.Consume(attempt.Context(), resp.Body, machine); err != nil {
		logger.Debug().Err(err).Msg("stream ended with error")
	}
	attempt.Release()
	return report(machine)
}

func runWatch(cfg *infra.Config, logger infra.Logger, args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	common := addCommon(fs)
	id := fs.String("id", "", "request id to follow")
	_ = fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "jobctl: -id is required")
		return 2
	}
	return follow(cfg, logger, common, job.KindVideo, *id)
}

// follow polls the task endpoint until the job reaches a terminal state.
func follow(cfg *infra.Config, logger infra.Logger, common *commonFlags, kind job.Kind, requestID string) int {
	machine := job.NewMachine(kind, common.locale)
	attempt := runner.NewAttempt(context.Background(), machine)
	cancelOnSignal(attempt)

	if err := machine.Begin(requestID); err != nil {
		logger.Error().Err(err).Msg("begin failed")
		return 1
	}

	poller := runner.NewPoller(runner.PollerOptions{
		BaseURL:    common.server,
		Interval:   cfg.PollInterval,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     &logger,
	})
	if err := poller.Run(attempt.Context(), machine, requestID); err != nil {
		logger.Debug().Err(err).Msg("polling ended with error")
	}
	attempt.Release()
	return report(machine)
}

func cancelOnSignal(attempt *runner.Attempt) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		attempt.Cancel()
	}()
}

func report(machine *job.Machine) int {
	snap := machine.Snapshot()
	out, _ := json.MarshalIndent(snap, "", "  ")
	fmt.Println(string(out))
	if snap.State == job.StateFailed {
		return 1
	}
	return 0
}

// submitForm posts multipart fields and returns the request id
// from the submission response.
func submitForm(endpoint string, fields map[string]string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return "", fmt.Errorf("jobctl: encode form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("jobctl: encode form: %w", err)
	}

	resp, err := http.Post(endpoint, mw.FormDataContentType(), &buf)
	if err != nil {
		return "", fmt.Errorf("jobctl: submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("jobctl: submit: status %d", resp.StatusCode)
	}

	var parsed struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("jobctl: decode response: %w", err)
	}
	if parsed.RequestID == "" {
		return "", fmt.Errorf("jobctl: submit: empty request id")
	}
	return parsed.RequestID, nil
}
