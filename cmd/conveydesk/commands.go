package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/session"
)

const passwordEnvVar = "CONVEYDESK_PASSWORD"

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(passwordEnvVar)
			}
			if password == "" {
				return fmt.Errorf("a password is required: use --password or set %s", passwordEnvVar)
			}

			s, res, err := a.auth().Login(cmd.Context(), email, password)
			if !res.OK {
				return a.printResult(res)
			}
			if err != nil {
				return err
			}

			// never print the token
			results := json.RawMessage(`{}`)
			if s.User != nil {
				if results, err = json.Marshal(map[string]json.RawMessage{"user": s.User}); err != nil {
					return err
				}
			}
			return a.printResult(client.Result{OK: true, Status: res.Status, Results: results})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $"+passwordEnvVar+")")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session token and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.auth().Logout(cmd.Context())
			if err != nil {
				return err
			}
			if res.Status != 0 && !res.OK {
				a.logger.Warn("the API did not confirm the logout", slog.Int("status", res.Status))
			}
			_, err = fmt.Fprintln(a.out, "Logged out.")
			return err
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store.Get()
			if errors.Is(err, session.ErrNoSession) {
				fmt.Fprintln(a.out, "Not logged in.")
				return errRequestFailed
			}
			if err != nil {
				return err
			}

			now := time.Now()
			status := session.CheckTokenStatus(s.Token, now)

			fmt.Fprintf(a.out, "session file: %s\n", a.store.Path())
			fmt.Fprintf(a.out, "api:          %s\n", a.client.BaseURL())
			fmt.Fprintf(a.out, "token:        %s\n", status)
			if expiresAt, ok, err := session.TokenExpiry(s.Token); err == nil && ok {
				fmt.Fprintf(a.out, "expires:      %s (%s)\n", expiresAt.Local().Format(time.RFC3339), describeExpiry(expiresAt, now))
			}
			if s.User != nil {
				fmt.Fprintf(a.out, "user:         %s\n", s.User)
			}

			if status == session.TokenExpired {
				return errRequestFailed
			}
			return nil
		},
	}
}

func describeExpiry(expiresAt, now time.Time) string {
	d := expiresAt.Sub(now).Round(time.Second)
	if d <= 0 {
		return fmt.Sprintf("expired %s ago", -d)
	}
	return fmt.Sprintf("in %s", d)
}

func newRequestCmd(a *app) *cobra.Command {
	var (
		data    string
		fields  []string
		files   []string
		headers []string
		token   string
	)

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send a request to the API and print the result envelope",
		Example: `  conveydesk request GET /cases?status=open
  conveydesk request PATCH /cases/12 --data '{"status":"completed"}'
  conveydesk request POST /cases/12/documents --form kind=contract --file file=contract.pdf`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := requestBody(data, fields, files)
			if err != nil {
				return err
			}
			hdrs, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			res := a.client.Send(cmd.Context(), client.Descriptor{
				Method:        args[0],
				Path:          args[1],
				Headers:       hdrs,
				Body:          body,
				ExplicitToken: token,
			})
			return a.printResult(res)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body, or @file to read it from a file")
	cmd.Flags().StringArrayVarP(&fields, "form", "F", nil, "multipart form field name=value (repeatable)")
	cmd.Flags().StringArrayVar(&files, "file", nil, "multipart file field=path (repeatable)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra header Name: value (repeatable)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token to use instead of the stored session")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var queries []string

	cmd := &cobra.Command{
		Use:   "list RESOURCE",
		Short: "List a collection, e.g. cases or invoices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := a.service().Lookup(args[0])
			if err != nil {
				return err
			}
			query, err := parseQuery(queries)
			if err != nil {
				return err
			}

			items, res, err := collection.List(cmd.Context(), query)
			if !res.OK {
				return a.printResult(res)
			}
			if err != nil {
				return err
			}
			return a.printJSON(items)
		},
	}
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "query parameter key=value (repeatable)")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get RESOURCE ID",
		Short: "Fetch a single record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := a.service().Lookup(args[0])
			if err != nil {
				return err
			}

			item, res, err := collection.Get(cmd.Context(), args[1])
			if !res.OK {
				return a.printResult(res)
			}
			if err != nil {
				return err
			}
			return a.printJSON(item)
		},
	}
}
