package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]
	client := newAPIClient(getAPIURL(), loadToken())

	var err error
	switch command {
	case "auth":
		err = handleAuth(client, args)
	case "companies":
		err = handleCompanies(client, args)
	case "users":
		err = handleUsers(client, args)
	case "batch":
		err = handleBatch(client, args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func handleAuth(client *apiClient, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: companyhub-cli auth <login|logout|me>")
		return nil
	}

	switch args[0] {
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		username := fs.String("username", "", "username")
		password := fs.String("password", "", "password")
		fs.Parse(args[1:])
		if *username == "" || *password == "" {
			fs.PrintDefaults()
			return fmt.Errorf("username and password are required")
		}
		tok, err := client.login(*username, *password)
		if err != nil {
			return err
		}
		if err := saveToken(tok.AccessToken); err != nil {
			return err
		}
		fmt.Printf("✓ Logged in as %s (expires %s)\n", *username, tok.ExpiresAt.Local().Format("15:04:05"))
	case "logout":
		os.Remove(tokenFile())
		fmt.Println("✓ Logged out")
	case "me":
		var me map[string]any
		if err := client.do(http.MethodGet, "/api/v1/auth/me", nil, &me); err != nil {
			return err
		}
		return printJSON(me)
	default:
		return fmt.Errorf("unknown auth command: %s", args[0])
	}
	return nil
}

func handleCompanies(client *apiClient, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: companyhub-cli companies <list|get|create|delete>")
		return nil
	}

	switch args[0] {
	case "list":
		var companies []map[string]any
		if err := client.do(http.MethodGet, "/api/v1/companies", nil, &companies); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCODE\tEMAIL")
		for _, c := range companies {
			fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", c["id"], c["name"], c["code"], c["email"])
		}
		return w.Flush()
	case "get":
		return getOne(client, "companies", args[1:])
	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		body := map[string]*string{
			"name":       fs.String("name", "", "company name"),
			"code":       fs.String("code", "", "company code"),
			"address":    fs.String("address", "", "postal address"),
			"pincode":    fs.String("pincode", "", "postal code"),
			"email":      fs.String("email", "", "contact email"),
			"mobile_no":  fs.String("mobile", "", "mobile number"),
			"gst_number": fs.String("gst", "", "GST number"),
		}
		fs.Parse(args[1:])
		var created map[string]any
		if err := client.do(http.MethodPost, "/api/v1/companies", body, &created); err != nil {
			return err
		}
		fmt.Printf("✓ Company created: %v\n", created["id"])
	case "delete":
		return deleteOne(client, "companies", args[1:])
	default:
		return fmt.Errorf("unknown companies command: %s", args[0])
	}
	return nil
}

func handleUsers(client *apiClient, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: companyhub-cli users <list|get|create|delete>")
		return nil
	}

	switch args[0] {
	case "list":
		var users []map[string]any
		if err := client.do(http.MethodGet, "/api/v1/users", nil, &users); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tCOMPANY")
		for _, u := range users {
			fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", u["id"], u["username"], u["email"], u["company_id"])
		}
		return w.Flush()
	case "get":
		return getOne(client, "users", args[1:])
	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		body := map[string]*string{
			"username":   fs.String("username", "", "username"),
			"email":      fs.String("email", "", "email"),
			"phone":      fs.String("phone", "", "phone number"),
			"dob":        fs.String("dob", "", "date of birth (YYYY-MM-DD)"),
			"password":   fs.String("password", "", "password"),
			"company_id": fs.String("company", "", "company id"),
		}
		fs.Parse(args[1:])
		var created map[string]any
		if err := client.do(http.MethodPost, "/api/v1/users", body, &created); err != nil {
			return err
		}
		fmt.Printf("✓ User created: %v\n", created["id"])
	case "delete":
		return deleteOne(client, "users", args[1:])
	default:
		return fmt.Errorf("unknown users command: %s", args[0])
	}
	return nil
}

func handleBatch(client *apiClient, args []string) error {
	if len(args) < 1 || args[0] != "apply" {
		fmt.Println("Usage: companyhub-cli batch apply")
		return nil
	}
	var report struct {
		Results []struct {
			Status string         `json:"status"`
			Data   map[string]any `json:"data"`
			Detail string         `json:"detail"`
		} `json:"results"`
	}
	if err := client.do(http.MethodPost, "/api/process-json", nil, &report); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTATUS\tID\tDETAIL")
	for i, r := range report.Results {
		fmt.Fprintf(w, "%d\t%s\t%v\t%s\n", i+1, r.Status, r.Data["id"], r.Detail)
	}
	return w.Flush()
}

func getOne(client *apiClient, resource string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: companyhub-cli %s get <id>", resource)
	}
	var out map[string]any
	if err := client.do(http.MethodGet, "/api/v1/"+resource+"/"+args[0], nil, &out); err != nil {
		return err
	}
	return printJSON(out)
}

func deleteOne(client *apiClient, resource string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: companyhub-cli %s delete <id>", resource)
	}
	if err := client.do(http.MethodDelete, "/api/v1/"+resource+"/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Printf("✓ Deactivated %s\n", args[0])
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Print(`companyhub CLI

Usage:
  companyhub-cli <command> [options]

Commands:
  auth       Authentication (login, logout, me)
  companies  Company operations (list, get, create, delete)
  users      User operations (list, get, create, delete)
  batch      Apply the server's batch file (apply)
  help       Show this help message

Environment Variables:
  COMPANYHUB_API    API endpoint (default: http://localhost:8080)

Examples:
  companyhub-cli auth login -username alice -password secret
  companyhub-cli companies list
  companyhub-cli users create -username bob -email bob@acme.io -phone 999 -dob 1990-01-01 -password pw -company <id>
`)
}
