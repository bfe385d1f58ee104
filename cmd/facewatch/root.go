package main

import (
	"context"
	"fmt"
	"io"

	"facewatch/internal/app"
	"facewatch/internal/config"
	"facewatch/internal/logger"
	"facewatch/internal/service/capture"

	"github.com/spf13/cobra"
)

func newRootCommand(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "facewatch FACES_DIR",
		Short: "Watch a camera and alert on unknown faces",
		Long: `facewatch recognises faces on a webcam or stream and warns when an
unknown person stays in view for several processed frames in a row.

FACES_DIR holds one or more Name[digits].jpg images per known person.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.FacesDirectory = args[0]
			}
			if cfg.ShowFPS {
				return printCameraFPS(cmd.OutOrStdout(), cfg)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runWatch(cmd.Context(), cfg)
		},
	}

	bindGlobalFlags(root, cfg)
	bindWatchFlags(root, cfg)

	root.AddCommand(newGalleryCommand(cfg))
	root.AddCommand(newNotifyTestCommand(cfg))
	return root
}

// bindGlobalFlags registers flags shared by every sub-command. Defaults come from the environment.
func bindGlobalFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.ModelsDirectory, "models", cfg.ModelsDirectory, "directory holding the dlib model files")
	flags.Float64Var(&cfg.MatchTolerance, "tolerance", cfg.MatchTolerance, "max face distance counted as a match")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
}

func bindWatchFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	flags.StringVarP(&cfg.CameraURL, "url", "u", cfg.CameraURL, "RTSP or HTTP stream URL (webcam when empty)")
	flags.IntVarP(&cfg.WebcamIndex, "webcamnum", "w", cfg.WebcamIndex, "webcam device index")
	flags.StringVarP(&cfg.CameraName, "camname", "n", cfg.CameraName, "camera name used in logs, alerts and the window title")
	flags.BoolVarP(&cfg.ShowVideo, "show_video", "v", cfg.ShowVideo, "show the annotated video in a window")
	flags.IntVarP(&cfg.UnknownTrigger, "unknown_trigger", "t", cfg.UnknownTrigger, "consecutive processed frames with an unknown face before alerting")
	flags.Float64VarP(&cfg.FrameScale, "frame_scale", "s", cfg.FrameScale, "downscale factor applied before recognition (<= 1.0)")
	flags.IntVarP(&cfg.ProcessFPS, "process_fps", "f", cfg.ProcessFPS, "frames per second to run recognition on (0 = every frame)")
	flags.BoolVarP(&cfg.ShowFPS, "show_fps", "F", cfg.ShowFPS, "print the native camera FPS and exit")
	flags.IntVar(&cfg.Port, "http-port", cfg.Port, "serve the web viewer on this port (0 = disabled)")
}

func printCameraFPS(out io.Writer, cfg *config.Config) error {
	camera, err := capture.Open(cfg)
	if err != nil {
		return err
	}
	defer camera.Close()

	fmt.Fprintf(out, "Native camera FPS: %v\n", camera.FPS())
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config) error {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}
