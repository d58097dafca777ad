package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"table-keeper/internal/config"
	"table-keeper/internal/orchestrator"
	"table-keeper/internal/store"

	"github.com/pterm/pterm"
)

func main() {
	sessionID := flag.String("session", "", "session id to inspect")
	enforce := flag.Bool("enforce", false, "run one enforcement pass as the debug source after the audit")
	reconcile := flag.Bool("reconcile", false, "run one reconciler sweep over open sessions")
	timeout := flag.Duration("timeout", 10*time.Second, "overall timeout")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		pterm.Warning.Printfln("load .env: %v", err)
	}
	srvCfg, err := config.LoadServer()
	if err != nil {
		fatal("load server config", err)
	}
	orchCfg, err := config.LoadOrchestrator()
	if err != nil {
		fatal("load orchestrator config", err)
	}

	st, err := store.New(srvCfg.PostgresDSN)
	if err != nil {
		fatal("open store", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	orch := orchestrator.New(st, orchCfg)

	if *reconcile {
		spinner, _ := pterm.DefaultSpinner.Start("Sweeping open sessions ...")
		sum, err := orch.ReconcileOnce(ctx)
		if err != nil {
			spinner.Fail(err.Error())
			os.Exit(1)
		}
		spinner.Success(fmt.Sprintf("scanned=%d acted=%d failed=%d", sum.Scanned, sum.Acted, sum.Failed))
	}
	if *sessionID == "" {
		if !*reconcile {
			flag.Usage()
			os.Exit(2)
		}
		return
	}

	report, err := orch.Audit(ctx, *sessionID)
	if err != nil {
		fatal("audit session", err)
	}
	render(report)

	if *enforce {
		resp, err := orch.Enforce(ctx, orchestrator.Request{
			SessionID: *sessionID,
			Source:    orchestrator.SourceDebug,
		})
		if err != nil {
			fatal("enforce session", err)
		}
		pterm.DefaultSection.Println("Enforcement")
		if resp.SessionMissing {
			pterm.Warning.Println("session no longer exists")
			return
		}
		if len(resp.ActionsTaken) == 0 {
			pterm.Info.Println("no action taken")
		}
		for _, a := range resp.ActionsTaken {
			pterm.Success.Println(a)
		}
		pterm.Info.Printfln("status=%s paused=%t request=%s", resp.SessionStatus, resp.IsPaused, resp.RequestID)
	}
}

func render(r *orchestrator.AuditReport) {
	pterm.DefaultSection.Println("Session " + r.SessionID)
	pterm.Info.Printfln("status=%s game=%s dealer=%d paused=%t realMoney=%t awaiting=%t allDecisionsIn=%t",
		r.Status, r.GameType, r.DealerPosition, r.IsPaused, r.RealMoney, r.AwaitingNextRound, r.AllDecisionsIn)
	pterm.Info.Printfln("updated %s ago", r.Now.Sub(r.UpdatedAt).Round(time.Second))

	if len(r.Deadlines) > 0 {
		data := pterm.TableData{{"Deadline", "At", "Remaining", "Elapsed"}}
		for _, d := range r.Deadlines {
			data = append(data, []string{d.Name, d.At.Format(time.RFC3339), d.Remaining, strconv.FormatBool(d.Elapsed)})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	data := pterm.TableData{{"Seat", "Bot", "Status", "Sitting out", "Ante", "Decision", "Locked", "Auto-fold"}}
	for _, p := range r.Players {
		data = append(data, []string{
			strconv.Itoa(p.Position),
			strconv.FormatBool(p.IsBot),
			p.Status,
			strconv.FormatBool(p.SittingOut),
			p.AnteDecision,
			p.CurrentDecision,
			strconv.FormatBool(p.DecisionLocked),
			strconv.FormatBool(p.AutoFold),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	if r.Round != nil {
		turn := "-"
		if r.Round.CurrentTurnPosition != nil {
			turn = strconv.Itoa(*r.Round.CurrentTurnPosition)
		}
		pterm.Info.Printfln("round %d status=%s turn=%s", r.Round.Number, r.Round.Status, turn)
	}

	if len(r.Pending) == 0 && r.Reclaim == "" {
		pterm.Success.Println("nothing due")
		return
	}
	items := make([]pterm.BulletListItem, 0, len(r.Pending)+1)
	for _, p := range r.Pending {
		items = append(items, pterm.BulletListItem{Level: 0, Text: p})
	}
	if r.Reclaim != "" {
		items = append(items, pterm.BulletListItem{Level: 0, Text: "reclaim: " + r.Reclaim})
	}
	pterm.DefaultSection.Println("Due")
	_ = pterm.DefaultBulletList.WithItems(items).Render()
}

func fatal(what string, err error) {
	pterm.Error.Printfln("%s: %v", what, err)
	os.Exit(1)
}
