// Command gradscan runs a graduation audit for a program cohort against a
// running API instance and prints a per-student report. Exit code 1 means
// the scan itself failed or at least one student could not be audited.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type auditResult struct {
	StudentID      string   `json:"student_id"`
	StudentRegNo   string   `json:"student_reg_no"`
	Eligible       bool     `json:"eligible"`
	CGPA           float64  `json:"cgpa"`
	UnitsPassed    int      `json:"units_passed"`
	UnitsRequired  int      `json:"units_required"`
	MissingCourses []string `json:"missing_courses"`
	Reasons        []string `json:"reasons"`
	Classification *string  `json:"classification,omitempty"`
}

type cohortAudit struct {
	ProgramID string `json:"program_id"`
	LevelID   string `json:"level_id,omitempty"`
	Summary   struct {
		Count           int `json:"count"`
		EligibleCount   int `json:"eligible_count"`
		IneligibleCount int `json:"ineligible_count"`
	} `json:"summary"`
	Results []auditResult `json:"results"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	var (
		base      string
		programID string
		levelID   string
		email     string
		password  string
		token     string
		timeout   time.Duration
		verbose   bool
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&programID, "program", "", "Program ID to audit (required)")
	flag.StringVar(&levelID, "level", "", "Optional level ID to narrow the cohort")
	flag.StringVar(&email, "email", "", "Login email (alternative to -token)")
	flag.StringVar(&password, "password", "", "Login password")
	flag.StringVar(&token, "token", os.Getenv("GRADSCAN_TOKEN"), "Bearer token (defaults to GRADSCAN_TOKEN)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.BoolVar(&verbose, "v", false, "Print blockers for ineligible students")
	flag.Parse()

	if programID == "" {
		flag.Usage()
		log.Fatal("missing required -program flag")
	}

	client := &http.Client{Timeout: timeout}

	if token == "" {
		if email == "" || password == "" {
			log.Fatal("provide either -token or -email/-password")
		}
		var err error
		token, err = login(client, base, email, password)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
	}

	audit, err := fetchCohortAudit(client, base, token, programID, levelID)
	if err != nil {
		log.Fatalf("cohort audit failed: %v", err)
	}

	printReport(audit, verbose)

	if audit.Summary.IneligibleCount > 0 {
		os.Exit(1)
	}
}

func login(client *http.Client, base, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(apiURL(base, "/auth/login", nil), "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var env envelope
	if err := decode(resp, &env); err != nil {
		return "", err
	}
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("login response carried no access token")
	}
	return data.AccessToken, nil
}

func fetchCohortAudit(client *http.Client, base, token, programID, levelID string) (*cohortAudit, error) {
	query := url.Values{}
	if levelID != "" {
		query.Set("levelId", levelID)
	}
	req, err := http.NewRequest(http.MethodGet, apiURL(base, "/programs/"+programID+"/graduation-audit", query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := decode(resp, &env); err != nil {
		return nil, err
	}
	var audit cohortAudit
	if err := json.Unmarshal(env.Data, &audit); err != nil {
		return nil, err
	}
	return &audit, nil
}

func decode(resp *http.Response, env *envelope) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, env); err != nil {
		return fmt.Errorf("status %d: unparseable body: %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		return fmt.Errorf("status %d: %s: %s", resp.StatusCode, env.Error.Code, env.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func apiURL(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func printReport(audit *cohortAudit, verbose bool) {
	fmt.Println("Graduation Audit Report")
	fmt.Println("=======================")
	fmt.Printf("Program: %s", audit.ProgramID)
	if audit.LevelID != "" {
		fmt.Printf(" | Level: %s", audit.LevelID)
	}
	fmt.Println()
	fmt.Printf("Students: %d | Eligible: %d | Ineligible: %d\n\n",
		audit.Summary.Count, audit.Summary.EligibleCount, audit.Summary.IneligibleCount)

	for _, res := range audit.Results {
		status := "ELIGIBLE"
		if !res.Eligible {
			status = "BLOCKED"
		}
		line := fmt.Sprintf("[%s] %s  CGPA %.2f  units %d/%d", status, res.StudentRegNo, res.CGPA, res.UnitsPassed, res.UnitsRequired)
		if res.Classification != nil {
			line += "  " + *res.Classification
		}
		fmt.Println(line)
		if verbose && !res.Eligible {
			for _, reason := range res.Reasons {
				fmt.Printf("    - %s\n", reason)
			}
			if len(res.MissingCourses) > 0 {
				fmt.Printf("    - missing courses: %s\n", strings.Join(res.MissingCourses, ", "))
			}
		}
	}
}
