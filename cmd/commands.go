package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"lottoengine/config"
	"lottoengine/database"
	"lottoengine/domain/entities"
	"lottoengine/domain/services"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// NewApp builds the lottoengine command line
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "lottoengine"
	app.Usage = "Multi-tenant lottery draw and ticket engine"
	// verify runs without any configured backends, so a config error is left to the commands that need it
	app.Before = func(*cli.Context) error {
		if cfg, err := config.Load(); err == nil {
			ConfigureLogging(cfg)
		}
		return nil
	}
	app.Action = serve
	app.Commands = []*cli.Command{
		{
			Action:      serve,
			Name:        "serve",
			Usage:       "Start the draw worker",
			Category:    "Engine",
			Description: `Runs the scheduled sales open, draw execution, settlement and claim event expiry passes.`,
		},
		{
			Name:     "migrate",
			Usage:    "Manage database schema migrations",
			Category: "Database",
			Subcommands: []*cli.Command{
				{
					Name:  "up",
					Usage: "Apply all pending migrations",
					Action: func(*cli.Context) error {
						return database.MigrateUp(config.Get().GetDatabaseURL())
					},
				},
				{
					Name:      "down",
					Usage:     "Roll back migrations",
					ArgsUsage: "[steps]",
					Action: func(cctx *cli.Context) error {
						steps := 1
						if cctx.Args().Present() {
							n, err := strconv.Atoi(cctx.Args().First())
							if err != nil || n <= 0 {
								return fmt.Errorf("invalid steps %q", cctx.Args().First())
							}
							steps = n
						}
						return database.MigrateDown(config.Get().GetDatabaseURL(), steps)
					},
				},
				{
					Name:  "status",
					Usage: "Show the current migration version",
					Action: func(*cli.Context) error {
						return database.MigrateStatus(config.Get().GetDatabaseURL())
					},
				},
			},
		},
		{
			Action:   verify,
			Name:     "verify",
			Usage:    "Verify a published draw proof offline",
			Category: "Fairness",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "hash", Usage: "committed server seed hash", Required: true},
				&cli.StringFlag{Name: "seed", Usage: "revealed server seed", Required: true},
				&cli.StringFlag{Name: "input", Usage: "derived input (draw id without dashes)", Required: true},
				&cli.StringFlag{Name: "numbers", Usage: "published winning numbers, comma separated", Required: true},
				&cli.StringFlag{Name: "game", Usage: "game code", Value: entities.GameCodeLotto539},
				&cli.StringFlag{Name: "algorithm", Value: entities.AlgorithmHMACSHA256},
			},
		},
		{
			Name:     "draw",
			Usage:    "Operate on a single draw",
			Category: "Engine",
			Subcommands: []*cli.Command{
				{Name: "open-sales", Usage: "Commit the server seed now", Flags: drawFlags(), Action: drawAction(openSales)},
				{Name: "execute", Usage: "Reveal the seed and draw the numbers", Flags: drawFlags(), Action: drawAction(executeDraw)},
				{Name: "settle", Usage: "Award the winning lines", Flags: drawFlags(), Action: drawAction(settleDraw)},
				{Name: "proof", Usage: "Print the verification proof", Flags: drawFlags(), Action: drawAction(printProof)},
			},
		},
	}
	return app
}

func serve(cctx *cli.Context) error {
	return Run(cctx.Context, config.Get())
}

func verify(cctx *cli.Context) error {
	proof := &entities.DrawVerification{
		ServerSeedHash: cctx.String("hash"),
		ServerSeed:     cctx.String("seed"),
		Algorithm:      cctx.String("algorithm"),
		DerivedInput:   cctx.String("input"),
	}
	if err := VerifyProof(proof, cctx.String("game"), cctx.String("numbers")); err != nil {
		return err
	}
	fmt.Println("proof verified")
	return nil
}

// VerifyProof replays a proof whose winning numbers are given in their published text form
func VerifyProof(proof *entities.DrawVerification, gameCode, numbers string) error {
	game, ok := entities.DefaultPlayRuleRegistry().GetGame(gameCode)
	if !ok {
		return entities.ErrGameNotFound.WithMessage("unknown game %q", gameCode)
	}

	published, err := entities.ParseLotteryNumbers(numbers, game.DrawFormat)
	if err != nil {
		return err
	}
	proof.WinningNumbers = published.Values()

	return services.NewLotteryRNGService().Verify(proof, game.DrawFormat)
}

func drawFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{Name: "tenant", Usage: "tenant id", Required: true},
		&cli.StringFlag{Name: "id", Usage: "draw id", Required: true},
	}
}

type drawOperation func(ctx context.Context, rt *Runtime, tenantID int64, drawID uuid.UUID) (any, error)

func drawAction(op drawOperation) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		drawID, err := uuid.Parse(cctx.String("id"))
		if err != nil {
			return fmt.Errorf("invalid draw id: %w", err)
		}

		rt, err := Bootstrap(cctx.Context, config.Get())
		if err != nil {
			return err
		}
		defer rt.Close()

		out, err := op(cctx.Context, rt, cctx.Int64("tenant"), drawID)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

func openSales(ctx context.Context, rt *Runtime, tenantID int64, drawID uuid.UUID) (any, error) {
	draw, err := rt.Draws.OpenSales(ctx, tenantID, drawID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"drawId": draw.ID, "serverSeedHash": draw.ServerSeedHash}, nil
}

func executeDraw(ctx context.Context, rt *Runtime, tenantID int64, drawID uuid.UUID) (any, error) {
	result, err := rt.Draws.ExecuteDraw(ctx, tenantID, drawID)
	if err != nil {
		return nil, err
	}
	return result.Verification, nil
}

func settleDraw(ctx context.Context, rt *Runtime, tenantID int64, drawID uuid.UUID) (any, error) {
	result, err := rt.Draws.SettleDraw(ctx, tenantID, drawID)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"drawId":         drawID,
		"linesEvaluated": result.LinesEvaluated,
		"awardsCreated":  result.AwardsCreated,
	}).Info("Draw settled")
	return result, nil
}

func printProof(ctx context.Context, rt *Runtime, tenantID int64, drawID uuid.UUID) (any, error) {
	return rt.Draws.GetVerification(ctx, tenantID, drawID)
}
