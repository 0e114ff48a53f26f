package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/segmint-dev/segmint/pkg/sdk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	addr := os.Getenv("SEGMINT_ADDR")
	if addr == "" {
		addr = "https://localhost:7002"
	}

	client, err := sdk.Connect(addr, os.Getenv("API_KEY"))
	if err != nil {
		log.Fatalf("Failed to build client for %s: %v", addr, err)
	}

	command := strings.ToUpper(os.Args[1])
	args := os.Args[2:]

	switch command {
	case "PREDICT":
		if len(args) < 4 {
			log.Fatal("Usage: segmint PREDICT <income> <age> <spending> <recency>")
		}
		income := parseFloat(args[0], "income")
		age := parseInt(args[1], "age")
		spending := parseFloat(args[2], "spending")
		recency := parseInt(args[3], "recency")

		res, err := client.Predict(income, age, spending, recency)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Cluster:     %d\n", res.Cluster)
		fmt.Printf("Persona:     %s\n", res.Persona)
		fmt.Printf("Description: %s\n", res.Description)
		if len(res.Strategy) > 0 {
			fmt.Printf("Strategy:    %s\n", strings.Join(res.Strategy, ", "))
		}

	case "HISTORY":
		entries, err := client.History()
		if err != nil {
			log.Fatal(err)
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Income", "Age", "Spending", "Recency", "Cluster", "Persona", "Timestamp"})
		for _, e := range entries {
			table.Append([]string{
				fmt.Sprintf("%.2f", e.Income),
				strconv.Itoa(e.Age),
				fmt.Sprintf("%.2f", e.Spending),
				strconv.Itoa(e.Recency),
				strconv.Itoa(e.Cluster),
				e.Persona,
				e.Timestamp.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()

	case "STATS":
		counts, err := client.Stats()
		if err != nil {
			log.Fatal(err)
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Cluster", "Persona", "Count"})
		for _, cc := range counts {
			table.Append([]string{strconv.Itoa(cc.Cluster), cc.Persona, strconv.FormatInt(cc.Count, 10)})
		}
		table.Render()

	case "REPORT":
		if len(args) < 1 {
			log.Fatal("Usage: segmint REPORT <persona name> [output file]")
		}
		out := "report.pdf"
		if len(args) > 1 {
			out = args[1]
		}
		pdf, err := client.DownloadReport(args[0])
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(out, pdf, 0644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", out, len(pdf))

	case "PING":
		if err := client.Ping(); err != nil {
			log.Fatal(err)
		}
		fmt.Println("PONG")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func parseFloat(s, name string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Fatalf("Invalid %s: %q", name, s)
	}
	return v
}

func parseInt(s, name string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("Invalid %s: %q", name, s)
	}
	return v
}

func printUsage() {
	fmt.Println("Segmint CLI - Interface for the segmentation daemon")
	fmt.Println("\nUsage:")
	fmt.Println("  segmint PREDICT <income> <age> <spending> <recency>")
	fmt.Println("  segmint HISTORY")
	fmt.Println("  segmint STATS")
	fmt.Println("  segmint REPORT <persona name> [output file]")
	fmt.Println("  segmint PING")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  SEGMINT_ADDR          Base URL of the daemon (default: https://localhost:7002)")
	fmt.Println("  API_KEY               Shared secret for HISTORY and STATS")
	fmt.Println("  SEGMINT_DISABLE_TLS   Set to true when the daemon runs plain HTTP")
}
