package sqlmap

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/webaudit/scanner/internal/model"
)

// ErrBadArgument rejects deep-scan options outside the allowed ranges
// before anything reaches a command line.
var ErrBadArgument = errors.New("invalid sqlmap argument")

var tamperNameRe = regexp.MustCompile(`^[a-zA-Z0-9_,-]+$`)

// Args is the caller-controllable subset of the external tool's
// options. Everything else on the command line is fixed.
type Args struct {
	Level   int    `json:"level,omitempty"`
	Risk    int    `json:"risk,omitempty"`
	Threads int    `json:"threads,omitempty"`
	Tamper  string `json:"tamper,omitempty"`
}

func (a *Args) Validate() error {
	if a == nil {
		return nil
	}
	if a.Level != 0 && (a.Level < 1 || a.Level > 5) {
		return fmt.Errorf("%w: level must be 1-5, got %d", ErrBadArgument, a.Level)
	}
	if a.Risk != 0 && (a.Risk < 1 || a.Risk > 3) {
		return fmt.Errorf("%w: risk must be 1-3, got %d", ErrBadArgument, a.Risk)
	}
	if a.Threads != 0 && (a.Threads < 1 || a.Threads > 50) {
		return fmt.Errorf("%w: threads must be 1-50, got %d", ErrBadArgument, a.Threads)
	}
	if a.Tamper != "" && !tamperNameRe.MatchString(a.Tamper) {
		return fmt.Errorf("%w: tamper name %q", ErrBadArgument, a.Tamper)
	}
	return nil
}

// BuildCommandArgs composes the full argument list: the target, the
// fixed non-interactive flags, the validated caller options (or the
// defaults when none are given), and POST data from the first suitable
// discovered form. Every value is validated or generated here; nothing
// caller-supplied lands on the command line verbatim.
func BuildCommandArgs(target string, args *Args, forms []model.Form) ([]string, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	cmd := []string{
		"-u", RewriteLocalTarget(target),
		"--batch",
		"--random-agent",
		"--smart",
		"--flush-session",
	}

	level, risk, threads := 3, 2, 5
	if args != nil {
		if args.Level != 0 {
			level = args.Level
		}
		if args.Risk != 0 {
			risk = args.Risk
		}
		if args.Threads != 0 {
			threads = args.Threads
		}
	}
	cmd = append(cmd,
		fmt.Sprintf("--level=%d", level),
		fmt.Sprintf("--risk=%d", risk),
		fmt.Sprintf("--threads=%d", threads),
	)
	if args != nil && args.Tamper != "" {
		cmd = append(cmd, fmt.Sprintf("--tamper=%s", args.Tamper))
	}

	if data := postDataFromForms(forms); data != "" {
		cmd = append(cmd, "--data", data)
	}

	return cmd, nil
}

// postDataFromForms builds placeholder POST data from the first POST
// form the crawler found.
func postDataFromForms(forms []model.Form) string {
	for _, form := range forms {
		if !strings.EqualFold(form.Method, "post") || len(form.Inputs) == 0 {
			continue
		}
		pairs := make([]string, 0, len(form.Inputs))
		for _, input := range form.Inputs {
			pairs = append(pairs, url.QueryEscape(input)+"=test")
		}
		return strings.Join(pairs, "&")
	}
	return ""
}

// RewriteLocalTarget points loopback targets at host.docker.internal so
// a containerized tool can still reach them. The port is kept.
func RewriteLocalTarget(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := parsed.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return rawURL
	}
	if port := parsed.Port(); port != "" {
		parsed.Host = net.JoinHostPort("host.docker.internal", port)
	} else {
		parsed.Host = "host.docker.internal"
	}
	return parsed.String()
}
