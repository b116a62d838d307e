package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/MrEthical07/goPortal/router"
	"github.com/urfave/cli/v2"
)

func routesCommand() *cli.Command {
	return &cli.Command{
		Name:  "routes",
		Usage: "print the route table and the guard outcome per session state",
		Action: func(c *cli.Context) error {
			table, err := router.NewTable(router.DefaultRoutes())
			if err != nil {
				return err
			}
			s := currentSettings(c)
			return printRoutes(c.App.Writer, table, router.Config{
				LoginPath:                s.Navigation.Login,
				DefaultAuthenticatedPath: s.Navigation.Home,
				MaxRedirects:             s.Navigation.Redirects,
			})
		},
	}
}

func printRoutes(w io.Writer, table *router.Table, cfg router.Config) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNAME\tAUTH\tANONYMOUS\tSIGNED-IN\tCOMPONENTS")
	for _, loc := range table.Locations() {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
			loc.Path,
			loc.Name,
			loc.Meta.RequiresAuth,
			router.Decide(false, loc, cfg),
			router.Decide(true, loc, cfg),
			strings.Join(loc.Matched, " > "),
		)
	}
	return tw.Flush()
}
