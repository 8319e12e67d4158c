package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/golang-jwt/jwt/v5"
)

type sessionRecord struct {
	User           *domainauth.User
	RawUser        string
	Token          string
	TimeoutMinutes int
	TimeoutSet     bool
}

func loadRecord(ctx *commandContext) (sessionRecord, error) {
	var rec sessionRecord

	raw, err := lookup(ctx, domainauth.KeyUser)
	if err != nil {
		return rec, err
	}
	rec.RawUser = raw
	if raw != "" {
		var u domainauth.User
		if json.Unmarshal([]byte(raw), &u) == nil {
			rec.User = &u
		}
	}

	if rec.Token, err = lookup(ctx, domainauth.KeyToken); err != nil {
		return rec, err
	}

	timeout, err := lookup(ctx, domainauth.KeyInactivityTimeout)
	if err != nil {
		return rec, err
	}
	rec.TimeoutSet = timeout != ""
	rec.TimeoutMinutes = domainauth.ParseTimeoutMinutes(timeout)
	if !rec.TimeoutSet && ctx.Config.Session.DefaultTimeoutMinutes > 0 {
		rec.TimeoutMinutes = ctx.Config.Session.DefaultTimeoutMinutes
	}
	return rec, nil
}

// lookup returns "" for absent keys.
func lookup(ctx *commandContext, key string) (string, error) {
	v, err := ctx.Store.Get(ctx.Ctx, key)
	if apperrors.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func runShow(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(ctx.Out)
	rawJSON := fs.Bool("json", false, "Print the record as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := loadRecord(ctx)
	if err != nil {
		return err
	}

	if *rawJSON {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			User                     *domainauth.User `json:"user"`
			HasToken                 bool             `json:"hasToken"`
			InactivityTimeoutMinutes int              `json:"inactivityTimeoutMinutes"`
		}{rec.User, rec.Token != "", rec.TimeoutMinutes})
	}

	w := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "Field\tValue"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	switch {
	case rec.User != nil:
		rows := [][2]string{
			{"User ID", rec.User.ID},
			{"Name", rec.User.Name},
			{"Email", rec.User.Email},
			{"Role", string(rec.User.Role)},
		}
		for _, row := range rows {
			if err := writef(w, "%s\t%s\n", row[0], row[1]); err != nil {
				return fmt.Errorf("write %s: %w", row[0], err)
			}
		}
	case rec.RawUser != "":
		if err := writef(w, "User\t(unreadable record)\n"); err != nil {
			return fmt.Errorf("write user: %w", err)
		}
	default:
		if err := writef(w, "User\t(signed out)\n"); err != nil {
			return fmt.Errorf("write user: %w", err)
		}
	}
	if err := writef(w, "Token\t%s\n", describeToken(rec.Token, time.Now())); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	source := "default"
	if rec.TimeoutSet {
		source = "saved"
	}
	if err := writef(w, "Inactivity timeout\t%d min (%s)\n", rec.TimeoutMinutes, source); err != nil {
		return fmt.Errorf("write timeout: %w", err)
	}
	return w.Flush()
}

// describeToken masks the token and reports JWT expiry when present.
func describeToken(token string, now time.Time) string {
	if token == "" {
		return "(none)"
	}
	masked := token
	if len(masked) > 8 {
		masked = masked[:4] + "..." + masked[len(masked)-4:]
	} else {
		masked = strings.Repeat("*", len(masked))
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return masked
	}
	exp := claims.ExpiresAt.Time
	if !exp.After(now) {
		return fmt.Sprintf("%s (expired %s)", masked, exp.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("%s (expires %s)", masked, exp.UTC().Format(time.RFC3339))
}

type clearOptions struct {
	DryRun bool
	Yes    bool
}

func runClear(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	fs.SetOutput(ctx.Out)

	var opts clearOptions
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Print actions without executing")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := loadRecord(ctx)
	if err != nil {
		return err
	}
	if rec.RawUser == "" && rec.Token == "" {
		return writeln(ctx.Out, "No persisted session.")
	}

	target := "the persisted session"
	if rec.User != nil {
		target = fmt.Sprintf("the session of %s (%s)", rec.User.Email, rec.User.Role)
	}
	if opts.DryRun {
		return writef(ctx.Out, "Would clear %s.\n", target)
	}
	if !opts.Yes {
		if err := confirm(ctx, "About to clear "+target+"."); err != nil {
			return err
		}
	}

	if err := ctx.Store.Delete(ctx.Ctx, domainauth.KeyUser, domainauth.KeyToken); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	ctx.Logger.Info("persisted session cleared")
	return writeln(ctx.Out, "Session cleared.")
}

var errAborted = errors.New("aborted by user")

func confirm(ctx *commandContext, intro string) error {
	if err := writef(ctx.Out, "%s\nContinue? [y/N]: ", intro); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := bufio.NewReader(ctx.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp != "y" && resp != "yes" {
		return errAborted
	}
	return nil
}

func runTimeout(ctx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: breedify-admin timeout <minutes|15min|30min|1hour|4hours>")
	}
	minutes, err := parseTimeoutArg(args[0])
	if err != nil {
		return err
	}
	if err := ctx.Store.Set(ctx.Ctx, domainauth.KeyInactivityTimeout, domainauth.FormatTimeoutMinutes(minutes)); err != nil {
		return fmt.Errorf("save timeout: %w", err)
	}
	ctx.Logger.Info("inactivity timeout saved", "minutes", minutes)
	return writef(ctx.Out, "Inactivity timeout set to %d minutes.\n", minutes)
}

func parseTimeoutArg(arg string) (int, error) {
	if m, ok := domainauth.TimeoutForPreset(arg); ok {
		return m, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: expected minutes or a preset", arg)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid timeout %d: must be positive", n)
	}
	return n, nil
}

func runVerify(ctx *commandContext, _ []string) error {
	rec, err := loadRecord(ctx)
	if err != nil {
		return err
	}
	if rec.Token == "" {
		return writeln(ctx.Out, "No persisted token.")
	}

	api, err := ctx.API()
	if err != nil {
		return err
	}
	user, err := api.CurrentUser(ctx.Ctx, rec.Token)
	if err != nil {
		if werr := writef(ctx.Out, "Token rejected: %s\n", apperrors.Message(err, err.Error())); werr != nil {
			return werr
		}
		return err
	}
	return writef(ctx.Out, "Token valid for %s (%s, %s).\n", user.Email, user.ID, user.Role)
}
