package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"xstream/internal/app"
	"xstream/internal/controls"
	"xstream/internal/domain"
	"xstream/internal/infra"
	"xstream/internal/workflow"
)

var outFlag = &cli.StringFlag{
	Name:     "out",
	Aliases:  []string{"o"},
	Usage:    "Where to write the result",
	Required: true,
}

var refineFlag = &cli.StringSliceFlag{
	Name:  "refine",
	Usage: "Follow-up instruction applied to the result (repeatable)",
}

func faceSwapCommand() *cli.Command {
	return &cli.Command{
		Name:  "face-swap",
		Usage: "Put the face from one photo onto another",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Usage: "Photo whose face is replaced", Required: true},
			&cli.StringFlag{Name: "face", Usage: "Photo providing the face", Required: true},
			refineFlag,
			outFlag,
		},
		Action: func(c *cli.Context) error {
			return runTool(c, workflow.ToolFaceSwap, func(ctx context.Context, w workflow.Workflow) error {
				f := w.(*workflow.FaceSwap)
				if err := uploadFile(f.SetSource, c.String("source")); err != nil {
					return err
				}
				if err := uploadFile(f.SetFace, c.String("face")); err != nil {
					return err
				}
				return f.Generate(ctx)
			})
		},
	}
}

func clothingSwapCommand() *cli.Command {
	return &cli.Command{
		Name:  "clothing-swap",
		Usage: "Dress a person in a garment",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "person", Usage: "Photo of the person", Required: true},
			&cli.StringFlag{Name: "garment", Usage: "Photo of the garment", Required: true},
			&cli.StringFlag{Name: "instruction", Usage: "Extra styling instruction"},
			refineFlag,
			outFlag,
		},
		Action: func(c *cli.Context) error {
			return runTool(c, workflow.ToolClothingSwap, func(ctx context.Context, w workflow.Workflow) error {
				cs := w.(*workflow.ClothingSwap)
				if err := uploadFile(cs.SetPerson, c.String("person")); err != nil {
					return err
				}
				if err := uploadFile(cs.SetGarment, c.String("garment")); err != nil {
					return err
				}
				return cs.Generate(ctx, c.String("instruction"))
			})
		},
	}
}

func removeBackgroundCommand() *cli.Command {
	return &cli.Command{
		Name:  "remove-bg",
		Usage: "Cut out the subject and optionally place it on a new background",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Usage: "Photo to cut out", Required: true},
			&cli.StringFlag{Name: "background", Usage: "Background photo to composite onto"},
			&cli.StringFlag{Name: "background-prompt", Usage: "Describe a background to generate"},
			refineFlag,
			outFlag,
		},
		Action: func(c *cli.Context) error {
			return runTool(c, workflow.ToolBackgroundRemover, func(ctx context.Context, w workflow.Workflow) error {
				b := w.(*workflow.BackgroundRemover)
				if err := uploadFile(b.SetImage, c.String("image")); err != nil {
					return err
				}
				if err := b.Remove(ctx); err != nil {
					return err
				}
				if path := c.String("background"); path != "" {
					if err := uploadFile(func(img domain.ImageFile) error {
						return b.SetInput(workflow.SlotBackground, img)
					}, path); err != nil {
						return err
					}
				}
				if c.String("background") == "" && c.String("background-prompt") == "" {
					return nil
				}
				return b.Composite(ctx, c.String("background-prompt"))
			})
		},
	}
}

func assistantCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "idea", Usage: "What to create", Required: true},
		&cli.StringFlag{Name: "source", Usage: "Image to edit instead of generating from scratch"},
		&cli.StringSliceFlag{Name: "asset", Usage: "Reference image (repeatable)"},
		&cli.BoolFlag{Name: "lyrics", Usage: "Also write song lyrics (needs --genre)"},
		&cli.BoolFlag{Name: "draft", Usage: "Expand the idea into a detailed prompt first"},
		refineFlag,
		outFlag,
	}
	for _, field := range controls.Fields {
		flags = append(flags, &cli.StringFlag{Name: flagName(field), Usage: "Creative control " + string(field)})
	}
	return &cli.Command{
		Name:  "assistant",
		Usage: "Generate an image with a written answer and optional lyrics",
		Flags: flags,
		Action: func(c *cli.Context) error {
			return runTool(c, workflow.ToolCreativeAssistant, func(ctx context.Context, w workflow.Workflow) error {
				a := w.(*workflow.CreativeAssistant)
				if err := a.SetIdea(c.String("idea")); err != nil {
					return err
				}
				for _, field := range controls.Fields {
					if v := c.String(flagName(field)); v != "" {
						if err := a.SetControl(field, v); err != nil {
							return err
						}
					}
				}
				if path := c.String("source"); path != "" {
					if err := uploadFile(a.SetSource, path); err != nil {
						return err
					}
				}
				for _, path := range c.StringSlice("asset") {
					if err := uploadFile(a.AddAsset, path); err != nil {
						return err
					}
				}
				if err := a.SetGenerateLyrics(c.Bool("lyrics")); err != nil {
					return err
				}
				if c.Bool("draft") {
					if err := a.Draft(ctx); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Prompt: %s\n\n", a.View().Idea)
				}
				if err := a.Generate(ctx); err != nil {
					return err
				}
				view := a.View()
				fmt.Fprintln(c.App.Writer, view.Text)
				if view.Lyrics != "" {
					fmt.Fprintf(c.App.Writer, "\n--- Lyrics ---\n%s\n", view.Lyrics)
				}
				return nil
			})
		},
	}
}

func animateCommand() *cli.Command {
	return &cli.Command{
		Name:  "animate",
		Usage: "Turn a character image into a short video",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Usage: "Character image", Required: true},
			&cli.StringFlag{Name: "motion", Usage: "Describe the motion", Required: true},
			&cli.StringFlag{Name: "video-key", Usage: "Billing-enabled API key for video generation", EnvVars: []string{"GEMINI_VIDEO_API_KEY"}},
			outFlag,
		},
		Action: func(c *cli.Context) error {
			return runTool(c, workflow.ToolCharacterAnimator, func(ctx context.Context, w workflow.Workflow) error {
				a := w.(*workflow.CharacterAnimator)
				if a.View().Stage == workflow.StageNeedsCredential {
					key := strings.TrimSpace(c.String("video-key"))
					if key == "" {
						return cli.Exit("video generation needs a billing-enabled key: pass --video-key", 2)
					}
					if err := a.SelectCredential(ctx, key); err != nil {
						return err
					}
				}
				if err := uploadFile(a.SetImage, c.String("image")); err != nil {
					return err
				}
				if err := a.SetMotion(c.String("motion")); err != nil {
					return err
				}
				fmt.Fprintln(c.App.ErrWriter, "Generating video, this can take a few minutes...")
				return a.Animate(ctx)
			})
		},
	}
}

func controlsCommand() *cli.Command {
	return &cli.Command{
		Name:  "controls",
		Usage: "List creative control options",
		Action: func(c *cli.Context) error {
			return printCatalog(c.App.Writer, controls.DefaultCatalog())
		},
	}
}

func printCatalog(out io.Writer, catalog controls.Catalog) error {
	for _, field := range controls.Fields {
		if _, err := fmt.Fprintf(out, "%s (default %s): %s\n", flagName(field), catalog.Default(field), strings.Join(catalog[field], ", ")); err != nil {
			return err
		}
	}
	return nil
}

func flagName(field controls.Field) string {
	return strings.ReplaceAll(string(field), "_", "-")
}

// runTool opens a session, runs step, applies any refinements and writes
// the current artifact to --out.
func runTool(c *cli.Context, tool workflow.Tool, step func(context.Context, workflow.Workflow) error) error {
	ctx := c.Context
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := zerolog.Nop()
	if c.Bool("verbose") {
		logger = infra.NewLogger("cli", cfg.LogLevel)
	}
	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	w, err := services.Registry.Create(ctx, tool, cfg.DefaultLocale)
	if err != nil {
		return err
	}
	defer func() { _ = services.Registry.Close(w.ID()) }()

	if err := step(ctx, w); err != nil {
		return stepError(w, err)
	}
	if refiner, ok := w.(workflow.Refiner); ok {
		for _, instruction := range c.StringSlice("refine") {
			if err := refiner.Refine(ctx, instruction); err != nil {
				return stepError(w, err)
			}
		}
	}

	data, err := currentBytes(ctx, services, w.View())
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.String("out"), data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Wrote %s\n", c.String("out"))
	return nil
}

func stepError(w workflow.Workflow, err error) error {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		return err
	}
	if view := w.View(); view.Error != nil {
		return cli.Exit(view.Error.Message, 1)
	}
	return cli.Exit(err.Error(), 1)
}

func currentBytes(ctx context.Context, services *app.Services, view workflow.View) ([]byte, error) {
	cur := view.Current
	if cur == nil {
		return nil, cli.Exit("the tool produced no result", 1)
	}
	if cur.Kind == domain.ArtifactKindVideo {
		data, _, err := services.Blobs.Get(ctx, cur.VideoRef)
		return data, err
	}
	img, err := domain.ParseDataURL(cur.DataURL)
	if err != nil {
		return nil, err
	}
	return img.Bytes()
}

func readImage(path string) (domain.ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImageFile{}, domain.WrapError(domain.ErrLocalIO, err, fmt.Sprintf("read %s", path))
	}
	return domain.ImageFileFromBytes(data, "")
}

func uploadFile(set func(domain.ImageFile) error, path string) error {
	img, err := readImage(path)
	if err != nil {
		return err
	}
	return set(img)
}
