package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "populate":
		populateCmd(apiURL, args)
	case "lifecycle":
		lifecycleCmd(apiURL, args)
	case "watch":
		watchCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Account Simulator - Development tool for exercising the account API

USAGE:
  simulator <command> [options]

COMMANDS:
  populate   Create fake accounts through the admin API
  lifecycle  Walk one account through role change, deactivation, reactivation and deletion
  watch      Stream the admin presence feed
  help       Show this help message

ENVIRONMENT:
  API_URL          Backend API URL (default: http://localhost:8080)
  ADMIN_EMAIL      Administrator email (default: admin@admin.com)
  ADMIN_PASSWORD   Administrator password (default: password)

EXAMPLES:
  # Create 25 subscribers
  simulator populate --count=25

  # Create editors instead (the role must exist)
  simulator populate --count=5 --role=editor

  # Run the lifecycle while another terminal watches the feed
  simulator watch
  simulator lifecycle`)
}

func adminLogin(client *APIClient) string {
	email := envOr("ADMIN_EMAIL", "admin@admin.com")
	password := envOr("ADMIN_PASSWORD", "password")

	fmt.Printf("Logging in as %s... ", email)
	token, err := client.Login(email, password)
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
	return token
}

func populateCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	count := fs.Int("count", 10, "Number of accounts to create")
	roleSlug := fs.String("role", "subscriber", "Slug of the role to attach")
	fs.Parse(args)

	if *count < 1 {
		fmt.Println("Error: --count must be at least 1")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	token := adminLogin(client)

	role, err := client.RoleBySlug(token, *roleSlug)
	if err != nil {
		fmt.Printf("Failed to find role: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nCreating %d %s accounts:\n", *count, role.Name)
	batch := uuid.NewString()[:6]
	for i := 0; i < *count; i++ {
		name := fmt.Sprintf("Sim User %s %d", batch, i+1)
		email := fmt.Sprintf("sim_%s_%d@example.com", batch, i+1)

		user, err := client.CreateUser(token, name, email, role.ID)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED: %v\n", i+1, *count, err)
			continue
		}
		fmt.Printf("  [%d/%d] %s <%s>\n", i+1, *count, user.Name, user.Email)
	}

	_, total, err := client.ListUsers(token, 1, 1)
	if err == nil {
		fmt.Printf("\nDone! %d accounts in total. Credentials were sent through the mailer.\n", total)
	}
}

func lifecycleCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("lifecycle", flag.ExitOnError)
	roleSlug := fs.String("role", "administrator", "Slug of the role to switch the account to")
	keep := fs.Bool("keep", false, "Skip the final permanent delete")
	fs.Parse(args)

	client := NewAPIClient(apiURL)
	token := adminLogin(client)

	subscriber, err := client.RoleBySlug(token, "subscriber")
	if err != nil {
		fmt.Printf("Failed to find role: %v\n", err)
		os.Exit(1)
	}
	target, err := client.RoleBySlug(token, *roleSlug)
	if err != nil {
		fmt.Printf("Failed to find role: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("=== Account Simulator: Lifecycle ===")
	fmt.Println()

	suffix := uuid.NewString()[:6]
	user, err := client.CreateUser(token, "Lifecycle "+suffix, "lifecycle_"+suffix+"@example.com", subscriber.ID)
	step("create", user, err)

	user, err = client.UpdateRole(token, user.ID, target.ID)
	step("role -> "+target.Slug, user, err)

	user, err = client.Transition(token, "deactivate", user.ID)
	step("deactivate", user, err)

	user, err = client.Transition(token, "reactivate", user.ID)
	step("reactivate", user, err)

	if !*keep {
		err = client.DeleteUser(token, user.ID)
		step("delete", user, err)
	}

	if err := client.Logout(token); err != nil {
		fmt.Printf("Warning: logout failed: %v\n", err)
	}
	fmt.Println()
	fmt.Println("Done!")
}

func step(name string, user *User, err error) {
	if err != nil {
		fmt.Printf("  %-22s FAILED\n    Error: %v\n", name, err)
		os.Exit(1)
	}
	fmt.Printf("  %-22s OK (active=%t deactivated=%t role=%q)\n", name, user.IsActive, user.IsDeactivated, user.Role)
}

func watchCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	duration := fs.Duration("for", 0, "Stop after this long (default: until interrupted)")
	fs.Parse(args)

	client := NewAPIClient(apiURL)
	token := adminLogin(client)

	conn, _, err := websocket.DefaultDialer.Dial(client.PresenceURL(token), nil)
	if err != nil {
		fmt.Printf("Failed to connect to presence feed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	if *duration > 0 {
		go func() {
			time.Sleep(*duration)
			quit <- syscall.SIGTERM
		}()
	}
	go func() {
		<-quit
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	fmt.Println("Watching presence feed (Ctrl+C to stop)...")
	for {
		var msg struct {
			Type      string          `json:"type"`
			Payload   json.RawMessage `json:"payload"`
			Timestamp int64           `json:"timestamp"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		fmt.Printf("%s  %-14s %s\n", time.Now().Format("15:04:05"), msg.Type, string(msg.Payload))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
