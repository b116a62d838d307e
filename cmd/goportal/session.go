package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "exchange credentials and persist the token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				EnvVars:  []string{"GOPORTAL_PASSWORD"},
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			engine, closeEngine, err := openEngine(c.Context, currentSettings(c), currentLogger(c))
			if err != nil {
				return err
			}
			defer closeEngine()

			if err := engine.Login(c.Context, c.String("email"), c.String("password")); err != nil {
				return cli.Exit("login failed: "+engine.State().Error, 1)
			}
			u := engine.User()
			fmt.Fprintf(c.App.Writer, "logged in as %s <%s> (%s)\n", u.Name, u.Email, u.Role)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "end the session and remove the persisted token",
		Action: func(c *cli.Context) error {
			engine, closeEngine, err := openEngine(c.Context, currentSettings(c), currentLogger(c))
			if err != nil {
				return err
			}
			defer closeEngine()

			if !engine.HasToken() {
				fmt.Fprintln(c.App.Writer, "not logged in")
				return nil
			}
			if err := engine.Logout(c.Context); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "logged out")
			return nil
		},
	}
}

type whoamiOutput struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"isAdmin"`
	IsStaff bool   `json:"isStaff"`
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "fetch the user behind the persisted token",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON"},
		},
		Action: func(c *cli.Context) error {
			engine, closeEngine, err := openEngine(c.Context, currentSettings(c), currentLogger(c))
			if err != nil {
				return err
			}
			defer closeEngine()

			if !engine.HasToken() {
				return cli.Exit("not logged in", 1)
			}
			// A rejected token logs the session out.
			engine.FetchUser(c.Context)
			u := engine.User()
			if u == nil {
				return cli.Exit("session expired", 1)
			}

			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(whoamiOutput{
					ID:      u.ID,
					Email:   u.Email,
					Name:    u.Name,
					Role:    string(u.Role),
					IsAdmin: engine.IsAdmin(),
					IsStaff: engine.IsStaff(),
				})
			}
			fmt.Fprintf(c.App.Writer, "%s <%s> role=%s\n", u.Name, u.Email, u.Role)
			return nil
		},
	}
}
