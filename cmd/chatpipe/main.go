// Command chatpipe sends a prompt through one of the provider pipes from the
// terminal. Credentials come from the environment (a .env file is loaded
// automatically); pick the pipe with -pipe and the model with -model.
//
// Examples:
//
//	chatpipe -pipe mistral -prompt "What is the capital of France?"
//	chatpipe -pipe anthropic -model claude-sonnet-4-5 -stream -prompt "Tell a story"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/chatpipe/chatpipe/observability"
	"github.com/chatpipe/chatpipe/observability/slogobs"
	"github.com/chatpipe/chatpipe/pipes"
	"github.com/chatpipe/chatpipe/pipes/anthropic"
	"github.com/chatpipe/chatpipe/pipes/cloudflare"
	"github.com/chatpipe/chatpipe/pipes/deepseek"
	"github.com/chatpipe/chatpipe/pipes/google"
	"github.com/chatpipe/chatpipe/pipes/mistral"
	"github.com/chatpipe/chatpipe/pipes/perplexity"
	"github.com/chatpipe/chatpipe/pipes/xai"
	"github.com/chatpipe/chatpipe/pipes/zai"
)

// registry maps pipe names to constructors. Each pipe reads its own
// credentials from the environment.
var registry = map[string]func() pipes.StreamPipe{
	"anthropic":  func() pipes.StreamPipe { return anthropic.New() },
	"cloudflare": func() pipes.StreamPipe { return cloudflare.New() },
	"deepseek":   func() pipes.StreamPipe { return deepseek.New() },
	"google":     func() pipes.StreamPipe { return google.New() },
	"mistral":    func() pipes.StreamPipe { return mistral.New() },
	"perplexity": func() pipes.StreamPipe { return perplexity.New() },
	"xai":        func() pipes.StreamPipe { return xai.New() },
	"zai":        func() pipes.StreamPipe { return zai.New() },
}

func main() {
	pipeName := flag.String("pipe", "", "provider pipe to use ("+pipeNames()+")")
	model := flag.String("model", "", "model ID (pipe default when empty)")
	prompt := flag.String("prompt", "", "user prompt to send")
	system := flag.String("system", "", "optional system prompt")
	stream := flag.Bool("stream", false, "stream the response incrementally")
	listModels := flag.Bool("models", false, "list the pipe's models and exit")
	verbose := flag.Bool("v", false, "log request/response spans")
	flag.Parse()

	if err := run(*pipeName, *model, *prompt, *system, *stream, *listModels, *verbose); err != nil {
		slog.Error("chatpipe failed", "error", err)
		os.Exit(1)
	}
}

func run(pipeName, model, prompt, system string, stream, listModels, verbose bool) error {
	construct, ok := registry[pipeName]
	if !ok {
		return fmt.Errorf("unknown pipe %q (choose one of: %s)", pipeName, pipeNames())
	}
	pipe := construct()

	if listModels {
		for _, info := range pipe.Models() {
			fmt.Printf("%-45s %s (%s)\n", info.ID, info.Name, featureList(info))
		}
		return nil
	}

	if prompt == "" {
		return fmt.Errorf("no prompt given (use -prompt)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if verbose {
		observer := slogobs.New(slog.Default())
		ctx = observability.ContextWithObserver(ctx, observer)
		spanCtx, span := observer.StartSpan(ctx, "chatpipe.request",
			observability.String(observability.AttrPipeProvider, pipeName),
		)
		defer span.End()
		ctx = spanCtx
	}

	request := pipes.ChatRequest{Model: model}
	if system != "" {
		request.Messages = append(request.Messages, pipes.Message{Role: pipes.RoleSystem, Content: system})
	}
	request.Messages = append(request.Messages, pipes.Message{Role: pipes.RoleUser, Content: prompt})

	if stream {
		return runStreaming(ctx, pipe, request)
	}
	return runBlocking(ctx, pipe, request)
}

func runBlocking(ctx context.Context, pipe pipes.StreamPipe, request pipes.ChatRequest) error {
	result, err := pipe.Complete(ctx, request)
	if err != nil {
		return err
	}

	if result.Reasoning != "" {
		fmt.Printf("[reasoning]\n%s\n\n", result.Reasoning)
	}
	fmt.Println(result.Content)
	printFooter(result.FinishReason, result.Usage, result.Citations)
	return nil
}

func runStreaming(ctx context.Context, pipe pipes.StreamPipe, request pipes.ChatRequest) error {
	chatStream, err := pipe.Stream(ctx, request)
	if err != nil {
		return err
	}

	var usage *pipes.Usage
	finishReason := ""

	for chunk, iterErr := range chatStream.Iter() {
		if iterErr != nil {
			fmt.Println()
			return iterErr
		}
		switch chunk.Type {
		case pipes.ChunkContent:
			fmt.Print(chunk.Content)
		case pipes.ChunkReasoning:
			fmt.Print(chunk.Reasoning)
		case pipes.ChunkUsage:
			usage = chunk.Usage
		case pipes.ChunkDone:
			finishReason = chunk.FinishReason
		}
	}
	fmt.Println()
	printFooter(finishReason, usage, nil)
	return nil
}

func printFooter(finishReason string, usage *pipes.Usage, citations []string) {
	if len(citations) > 0 {
		fmt.Println("\nSources:")
		for _, citation := range citations {
			fmt.Printf("  %s\n", citation)
		}
	}
	if usage != nil {
		fmt.Fprintf(os.Stderr, "\n[%s; %d prompt + %d completion = %d tokens]\n",
			finishReason, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
	}
}

func pipeNames() string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func featureList(info pipes.ModelInfo) string {
	if len(info.Features) == 0 {
		return "text"
	}
	features := make([]string, len(info.Features))
	for i, feature := range info.Features {
		features[i] = string(feature)
	}
	return strings.Join(features, ", ")
}
