// Command voxa is a voice and text assistant toolkit built on hosted AI
// services.
//
// Usage:
//
//	voxa [flags] <command> [args]
//
// Commands:
//
//	assistant - Voice assistant loop (record, transcribe, answer, speak)
//	record    - Record one utterance to a WAV file
//	adcopy    - Generate ad copy, variants or targeted ads
//	evaluate  - Score ad copy and pick the best variant
//	sns       - Generate a social media post
//	youtube   - Generate a YouTube video script
//	script    - Free-form script generation
//	narrate   - Sentence-by-sentence narration with SRT subtitles
//	report    - Write a PDF report
//
// Configuration:
//
//	voxa reads config.yaml (override with --config) and .env files. Without
//	a config file it runs against OpenAI with OPENAI_API_KEY.
package main

import (
	"fmt"
	"os"

	"github.com/MrWong99/voxa/cmd/voxa/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
