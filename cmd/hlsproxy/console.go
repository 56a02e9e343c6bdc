package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var consoleProxyURL string
var consoleManagementToken string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive REPL for inspecting and managing a running proxy",
	Long:  "Starts an interactive session that queries /cache-stats and issues /cache-purge requests against a running hlsproxy instance.",
	Run:   runConsole,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleProxyURL, "proxy", "http://localhost:8080", "hlsproxy base URL")
	consoleCmd.Flags().StringVar(&consoleManagementToken, "token", "", "management token for purge commands")
}

// runConsole implements the teacher's cmd/proxy/chat.go REPL shape
// (chzyer/readline, a command loop with "exit"/"quit" sentinels) aimed at
// this proxy's own management surface instead of a chat completion API.
func runConsole(cmd *cobra.Command, args []string) {
	fmt.Println("hlsproxy console")
	fmt.Println("Commands: stats | purge <url> | exit")
	fmt.Println()

	rl, err := readline.New("hlsproxy> ")
	if err != nil {
		fmt.Printf("error initializing readline: %v\n", err)
		return
	}
	defer rl.Close()

	client := &http.Client{}

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			fmt.Printf("error reading input: %v\n", err)
			continue
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return
		case line == "stats":
			runStats(client)
		case strings.HasPrefix(line, "purge "):
			runPurge(client, strings.TrimSpace(strings.TrimPrefix(line, "purge ")))
		default:
			fmt.Println("unrecognized command, try: stats | purge <url> | exit")
		}
	}
}

func runStats(client *http.Client) {
	resp, err := client.Get(consoleProxyURL + "/cache-stats")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var stats map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		fmt.Printf("error decoding response: %v\n", err)
		return
	}
	pretty, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(pretty))
}

func runPurge(client *http.Client, url string) {
	if url == "" {
		fmt.Println("usage: purge <url>")
		return
	}
	req, err := http.NewRequest(http.MethodDelete, consoleProxyURL+"/cache-purge?url="+url, nil)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if consoleManagementToken != "" {
		req.Header.Set("Authorization", "Bearer "+consoleManagementToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Printf("status: %s\n", resp.Status)
}
