package main

import (
	"fmt"
	"os"
	"strconv"

	"facewatch/internal/app"
	"facewatch/internal/config"
	"facewatch/internal/logger"
	"facewatch/internal/service/gallery"

	"github.com/spf13/cobra"
)

func newGalleryCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "gallery FACES_DIR",
		Short: "List the people enrolled in a faces directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.FacesDirectory = args[0]
			}
			if cfg.FacesDirectory == "" {
				return fmt.Errorf("faces directory is required")
			}

			log, err := logger.New(os.Stderr, "", cfg.Debug)
			if err != nil {
				return err
			}
			recognizer, g, err := app.LoadGallery(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer recognizer.Close()

			fmt.Fprintln(cmd.OutOrStdout(), renderPeople(g.People()))
			return nil
		},
	}
}

func renderPeople(people []gallery.Person) string {
	rows := make([][]string, 0, len(people))
	total := 0
	for _, p := range people {
		rows = append(rows, []string{p.Name, strconv.Itoa(p.Samples)})
		total += p.Samples
	}
	rows = append(rows, []string{"Total", strconv.Itoa(total)})
	return renderTable([]string{"Name", "Samples"}, rows, []columnAlignment{alignLeft, alignRight})
}
