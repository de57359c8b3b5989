package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/corvid-tools/ytgrab/client"
)

// classifyExitCode maps a returned package error to the process exit code
// this CLI documents for scripting, falling back to a generic failure code
// for an error this package didn't originate.
func classifyExitCode(err error) int {
	switch client.ClassifyError(err) {
	case client.ErrorCategoryInvalidInput:
		return exitCodeInvalidInput
	case client.ErrorCategoryLoginRequired:
		return exitCodeLoginRequired
	case client.ErrorCategoryUnavailable:
		return exitCodeUnavailable
	case client.ErrorCategoryNoPlayableFormats:
		return exitCodeNoPlayableFormats
	case client.ErrorCategoryChallengeNotSolved:
		return exitCodeChallengeUnresolved
	case client.ErrorCategoryAllClientsFailed:
		return exitCodeAllClientsFailed
	case client.ErrorCategoryDownloadFailed:
		return exitCodeDownloadFailed
	case client.ErrorCategoryMP3TranscoderNotConfigured:
		return exitCodeMP3ConfigRequired
	case client.ErrorCategoryTranscriptParse:
		return exitCodeTranscriptParse
	default:
		return exitCodeGenericFailure
	}
}

// printAttemptDiagnostics prints the per-client attempt matrix carried by
// err, when it carries one, unless suppressed. Fallback/login/unavailable
// errors always print it since it's the only way to see why every client
// was rejected; other errors only print when overridden is true.
func printAttemptDiagnostics(err error, overridden bool) {
	attempts, ok := client.AttemptDetails(err)
	if !ok {
		return
	}
	category := client.ClassifyError(err)
	alwaysShow := category == client.ErrorCategoryAllClientsFailed ||
		category == client.ErrorCategoryLoginRequired ||
		category == client.ErrorCategoryUnavailable
	if !alwaysShow && !overridden {
		return
	}

	fmt.Fprintln(os.Stderr, "attempt diagnostics:")
	for _, a := range attempts {
		fmt.Fprintf(os.Stderr, "  client=%-14s stage=%-10s reason=%s", a.Client, a.Stage, a.Reason)
		if a.HTTPStatus != 0 {
			fmt.Fprintf(os.Stderr, " http=%d", a.HTTPStatus)
		}
		if a.PlayabilityStatus != "" {
			fmt.Fprintf(os.Stderr, " playability=%s", a.PlayabilityStatus)
		}
		fmt.Fprintln(os.Stderr)
	}

	printGenericRemediationHints(attempts)
}

// printGenericRemediationHints prints a short hint per distinct failure
// condition observed across attempts, built from the structured attempt
// fields (never a free-form selector string, since none exists).
func printGenericRemediationHints(attempts []client.AttemptDetail) {
	var (
		sawLoginRequired = false
		sawAgeRestricted = false
		sawGeoRestricted = false
		sawDRM           = false
		sawPOTRequired   = false
	)
	for _, a := range attempts {
		sawLoginRequired = sawLoginRequired || a.LoginRequired
		sawAgeRestricted = sawAgeRestricted || a.AgeRestricted
		sawGeoRestricted = sawGeoRestricted || a.GeoRestricted
		sawDRM = sawDRM || a.DRMProtected
		sawPOTRequired = sawPOTRequired || (a.POTRequired && !a.POTAvailable)
	}

	if sawLoginRequired {
		fmt.Fprintln(os.Stderr, "hint: this video requires a logged-in session; pass --cookies with an exported cookies file")
	}
	if sawAgeRestricted {
		fmt.Fprintln(os.Stderr, "hint: age-restricted content may need authenticated cookies to play")
	}
	if sawGeoRestricted {
		fmt.Fprintln(os.Stderr, "hint: this video is unavailable in the extracting machine's region")
	}
	if sawDRM {
		fmt.Fprintln(os.Stderr, "hint: this stream is DRM-protected and cannot be downloaded")
	}
	if sawPOTRequired {
		fmt.Fprintln(os.Stderr, "hint: a proof-of-origin token is required for this client/protocol; pass --po-token")
	}
}

// cliErrorDetail is the machine-readable failure shape emitted by
// --dump-json on a failed extraction/download.
type cliErrorDetail struct {
	Input    string                  `json:"input"`
	Category client.ErrorCategory    `json:"category"`
	Message  string                  `json:"message"`
	Attempts []client.AttemptDetail  `json:"attempts,omitempty"`
}

// cliErrorReport builds the structured error payload for one failed input.
func cliErrorReport(input string, err error) cliErrorDetail {
	report := cliErrorDetail{
		Input:    input,
		Category: client.ClassifyError(err),
		Message:  err.Error(),
	}
	if attempts, ok := client.AttemptDetails(err); ok {
		report.Attempts = attempts
	}
	return report
}

// emitJSONFailure prints a cliErrorReport as a single JSON line to stdout,
// for --dump-json callers that want structured failures alongside
// structured successes.
func emitJSONFailure(input string, err error) {
	report := cliErrorReport(input, err)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil {
		fmt.Fprintf(os.Stderr, "failed to encode error report: %v\n", encErr)
	}
}
