// guests imports a guest list CSV through the batch endpoint.
// Run: go run ./import/guests -csv tamu.csv -email admin@example.com -password secret
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// batchLimit matches the server's maximum batch size.
const batchLimit = 500

type Config struct {
	CSVFile  string
	URL      string
	Email    string
	Password string
	DryRun   bool
}

type Importer struct {
	config Config
	client *http.Client
	token  string
}

type Row struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Category string `json:"category,omitempty"`
}

func main() {
	csvFile := flag.String("csv", "", "Path to CSV file (required)")
	apiURL := flag.String("url", "http://localhost:8090", "Invitation API URL")
	email := flag.String("email", "", "Admin email (required)")
	password := flag.String("password", "", "Admin password (required)")
	dryRun := flag.Bool("dry-run", false, "Parse and print without importing")
	flag.Parse()

	if *csvFile == "" || (!*dryRun && (*email == "" || *password == "")) {
		fmt.Println("Usage: go run ./import/guests -csv FILE -email EMAIL -password PASS")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	importer := &Importer{
		config: Config{
			CSVFile:  *csvFile,
			URL:      strings.TrimRight(*apiURL, "/"),
			Email:    *email,
			Password: *password,
			DryRun:   *dryRun,
		},
		client: &http.Client{Timeout: 30 * time.Second},
	}

	created, err := importer.Run()
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	fmt.Printf("\n=== Import Complete ===\nCreated: %d\n", created)
}

func (i *Importer) Run() (int, error) {
	f, err := os.Open(i.config.CSVFile)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rows, err := parseCSV(f)
	if err != nil {
		return 0, fmt.Errorf("failed to parse CSV: %w", err)
	}
	log.Printf("Parsed %d guests from CSV", len(rows))

	if i.config.DryRun {
		for _, r := range rows {
			fmt.Printf("  %s | %s | %s\n", r.Name, r.Phone, r.Category)
		}
		return 0, nil
	}

	log.Println("Authenticating...")
	if err := i.authenticate(); err != nil {
		return 0, fmt.Errorf("auth failed: %w", err)
	}

	created := 0
	for _, chunk := range chunks(rows, batchLimit) {
		n, err := i.postBatch(chunk)
		if err != nil {
			return created, err
		}
		created += n
		log.Printf("Imported %d/%d", created, len(rows))
	}
	return created, nil
}

// parseCSV reads name, phone and category columns. English and Indonesian
// headers are both accepted; rows without a name are skipped.
func parseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap := map[string]int{}
	for idx, h := range header {
		switch strings.TrimSpace(strings.ToLower(strings.TrimPrefix(h, "\ufeff"))) {
		case "name", "nama":
			colMap["name"] = idx
		case "phone", "telepon", "no hp", "whatsapp", "wa":
			colMap["phone"] = idx
		case "category", "kategori":
			colMap["category"] = idx
		}
	}
	if _, ok := colMap["name"]; !ok {
		return nil, errors.New("missing name column")
	}
	if _, ok := colMap["phone"]; !ok {
		return nil, errors.New("missing phone column")
	}

	cell := func(record []string, field string) string {
		idx, ok := colMap[field]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Warning: skipping malformed row: %v", err)
			continue
		}

		row := Row{
			Name:     cell(record, "name"),
			Phone:    cell(record, "phone"),
			Category: cell(record, "category"),
		}
		if row.Name == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func chunks(rows []Row, size int) [][]Row {
	var out [][]Row
	for len(rows) > size {
		out = append(out, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}

func (i *Importer) postBatch(rows []Row) (int, error) {
	jsonBody, _ := json.Marshal(map[string]any{"guests": rows})
	req, _ := http.NewRequest(http.MethodPost, i.config.URL+"/api/guests/batch", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", i.token)

	resp, err := i.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("batch rejected: %d - %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Created int `json:"created"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Created, nil
}

func (i *Importer) authenticate() error {
	jsonBody, _ := json.Marshal(map[string]string{
		"identity": i.config.Email,
		"password": i.config.Password,
	})

	resp, err := i.client.Post(
		i.config.URL+"/api/collections/users/auth-with-password",
		"application/json",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("auth failed: %d - %s", resp.StatusCode, string(respBody))
	}

	var authResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return err
	}
	i.token = authResp.Token
	return nil
}
