package orchestrator

import (
	"context"
	"fmt"
	"time"

	"table-keeper/internal/store"
)

func (r *run) apply(ctx context.Context, p *Plan) error {
	switch p.Kind {
	case planConfigTimeout:
		return r.applyConfigTimeout(ctx, p)
	case planAnteTimeout:
		return r.applyAnteTimeout(ctx, p)
	case planRecoverTurn:
		return r.applyRecoverTurn(ctx, p)
	case planTurnTimeout:
		return r.applyTurnTimeout(ctx, p)
	case planSimultaneousTimeout:
		return r.applySimultaneousTimeout(ctx, p)
	case planFlipAllIn:
		return r.flipAllDecisionsIn(ctx, p.Round)
	case planCompleteRound:
		return r.applyCompleteRound(ctx, p)
	case planStartRound:
		return r.applyStartRound(ctx, p)
	case planRegressShortHanded:
		return r.applyRegressShortHanded(ctx)
	case planGameOverAdvance:
		return r.applyGameOverAdvance(ctx, p)
	case planResume:
		return r.applyResume(ctx, p)
	case planEnd:
		return r.endOrDelete(ctx, p.Reason)
	case planEndSession:
		return r.endSession(ctx, p.Reason)
	}
	return fmt.Errorf("unknown plan kind %q", p.Kind)
}

func (r *run) applyConfigTimeout(ctx context.Context, p *Plan) error {
	s := r.snap.Session
	if p.NextSeat == nil && p.Count <= 0 {
		return r.endOrDelete(ctx, "no_active_humans")
	}
	cond := store.SessionCond{
		Status:         store.Set(s.Status),
		ConfigDeadline: store.Set(*p.Observed),
		DealerPosition: store.Set(p.Seat),
	}
	var (
		patch  store.SessionPatch
		action Action
	)
	if p.NextSeat != nil {
		patch = store.SessionPatch{
			DealerPosition: store.Set(*p.NextSeat),
			ConfigDeadline: store.Set(r.now.Add(r.o.cfg.ConfigDeadline)),
		}
		action = Action{Kind: ActionRotateDealer, Detail: fmt.Sprintf("%d->%d", p.Seat, *p.NextSeat)}
	} else {
		patch = store.SessionPatch{
			Status:         store.Set(store.StatusWaitingForPlayers),
			ConfigDeadline: store.SetNull[time.Time](),
		}
		action = Action{Kind: ActionRegressWaiting}
	}
	ok, err := r.o.store.UpdateSessionIf(ctx, s.ID, cond, patch, r.now)
	if err != nil {
		return transient("config timeout", err)
	}
	if !ok {
		r.skipped(action.Kind)
		return nil
	}
	r.took(action)
	return r.sitOut(ctx, r.snap.dealer(), ActionDealerSatOut)
}

func (r *run) sitOut(ctx context.Context, p *store.Player, kind ActionKind) error {
	if p == nil || p.SittingOut {
		return nil
	}
	ok, err := r.o.store.UpdatePlayerIf(ctx, p.ID,
		store.PlayerCond{SittingOut: store.Set(false)},
		store.PlayerPatch{SittingOut: store.Set(true)})
	if err != nil {
		return transient("sit out player", err)
	}
	if ok {
		r.took(Action{Kind: kind, Detail: fmt.Sprint(p.Position)})
	}
	return nil
}

func (r *run) applyAnteTimeout(ctx context.Context, p *Plan) error {
	s := r.snap.Session
	for _, pl := range p.Players {
		ok, err := r.o.store.UpdatePlayerIf(ctx, pl.ID,
			store.PlayerCond{AnteDecision: store.Set(store.AnteUndecided), SittingOut: store.Set(false)},
			store.PlayerPatch{AnteDecision: store.Set(store.AnteSitOut), SittingOut: store.Set(true)})
		if err != nil {
			return transient("force ante sit out", err)
		}
		if !ok {
			r.skipped(ActionForceAnteSitOut)
			continue
		}
		r.took(Action{Kind: ActionForceAnteSitOut, Detail: fmt.Sprint(pl.Position)})
	}

	players, err := r.o.store.ListPlayers(ctx, s.ID)
	if err != nil {
		return transient("list players", err)
	}
	anted := 0
	for _, pl := range players {
		if pl.Seated() && pl.AnteDecision == store.AnteUp {
			anted++
		}
	}
	cond := store.SessionCond{
		Status:               store.Set(store.StatusAnteDecision),
		AnteDecisionDeadline: store.Set(*p.Observed),
		DealerPosition:       store.Set(s.DealerPosition),
	}
	if anted >= 2 {
		ok, err := r.o.store.UpdateSessionIf(ctx, s.ID, cond, store.SessionPatch{
			Status:               store.Set(store.StatusInProgress),
			AnteDecisionDeadline: store.SetNull[time.Time](),
			CurrentRound:         store.SetNull[int](),
			AwaitingNextRound:    store.Set(true),
			NextRoundNumber:      store.Set(r.snap.Rules.FirstRound),
			AllDecisionsIn:       store.Set(false),
		}, r.now)
		if err != nil {
			return transient("ante complete", err)
		}
		if !ok {
			r.skipped(ActionAnteComplete)
			return nil
		}
		r.took(Action{Kind: ActionAnteComplete, Detail: fmt.Sprintf("%d players", anted)})
		return nil
	}

	patch := store.SessionPatch{
		Status:               store.Set(store.StatusWaitingForPlayers),
		AnteDecisionDeadline: store.SetNull[time.Time](),
	}
	var rotate *Action
	dealer := findPlayer(players, s.DealerPosition)
	if dealer == nil || !dealer.Seated() {
		candidates := dealerCandidates(players, r.o.cfg.AllowBotDealers, map[int]bool{s.DealerPosition: true})
		if next := nextClockwise(s.DealerPosition, candidates); next != nil {
			patch.DealerPosition = store.Set(*next)
			rotate = &Action{Kind: ActionRotateDealer, Detail: fmt.Sprintf("%d->%d", s.DealerPosition, *next)}
		}
	}
	ok, err := r.o.store.UpdateSessionIf(ctx, s.ID, cond, patch, r.now)
	if err != nil {
		return transient("ante regress", err)
	}
	if !ok {
		r.skipped(ActionRegressWaiting)
		return nil
	}
	if rotate != nil {
		r.took(*rotate)
	}
	r.took(Action{Kind: ActionRegressWaiting, Detail: fmt.Sprintf("%d anted", anted)})
	return nil
}

func findPlayer(players []store.Player, position int) *store.Player {
	for i := range players {
		if players[i].Position == position {
			return &players[i]
		}
	}
	return nil
}

func (r *run) applyRecoverTurn(ctx context.Context, p *Plan) error {
	round := p.Round
	ok, err := r.o.store.UpdateRoundIf(ctx, round.ID,
		store.RoundCond{
			Status:              store.Set(store.RoundBetting),
			CurrentTurnPosition: store.SetPtr(round.CurrentTurnPosition),
			DecisionDeadline:    store.SetPtr(round.DecisionDeadline),
		},
		store.RoundPatch{
			CurrentTurnPosition: store.Set(p.Seat),
			DecisionDeadline:    store.Set(r.now.Add(r.o.cfg.DecisionDeadline)),
		}, r.now)
	if err != nil {
		return transient("recover turn", err)
	}
	if !ok {
		r.skipped(ActionRecoverTurn)
		return nil
	}
	r.took(Action{Kind: ActionRecoverTurn, Detail: fmt.Sprint(p.Seat)})
	return nil
}

// resolveDecision locks a default decision for a player who let the deadline pass:
// bots get the fallback decider, humans fold and are flagged auto-fold.
func (r *run) resolveDecision(ctx context.Context, pl store.Player) error {
	patch := store.PlayerPatch{DecisionLocked: store.Set(true)}
	action := Action{Kind: ActionForceFold, Detail: fmt.Sprint(pl.Position)}
	if pl.IsBot {
		d := r.o.decider.Decide(pl)
		patch.CurrentDecision = store.Set(d)
		action = Action{Kind: ActionBotDecision, Detail: fmt.Sprintf("%d=%s", pl.Position, d)}
	} else {
		patch.CurrentDecision = store.Set(store.DecisionFold)
		patch.AutoFold = store.Set(true)
	}
	ok, err := r.o.store.UpdatePlayerIf(ctx, pl.ID, store.PlayerCond{DecisionLocked: store.Set(false)}, patch)
	if err != nil {
		return transient("lock decision", err)
	}
	if !ok {
		r.skipped(action.Kind)
		return nil
	}
	r.took(action)
	return nil
}

func (r *run) applyTurnTimeout(ctx context.Context, p *Plan) error {
	actor := p.Players[0]
	if !actor.DecisionLocked {
		if err := r.resolveDecision(ctx, actor); err != nil {
			return err
		}
	}
	players, err := r.o.store.ListPlayers(ctx, r.snap.Session.ID)
	if err != nil {
		return transient("list players", err)
	}
	next := nextClockwise(p.Seat, positions(undecidedOf(players)))
	if next == nil {
		return r.flipAllDecisionsIn(ctx, p.Round)
	}
	ok, err := r.o.store.UpdateRoundIf(ctx, p.Round.ID,
		store.RoundCond{Status: store.Set(store.RoundBetting), DecisionDeadline: store.Set(*p.Observed)},
		store.RoundPatch{
			CurrentTurnPosition: store.Set(*next),
			DecisionDeadline:    store.Set(r.now.Add(r.o.cfg.DecisionDeadline)),
		}, r.now)
	if err != nil {
		return transient("advance turn", err)
	}
	if ok {
		r.took(Action{Kind: ActionAdvanceTurn, Detail: fmt.Sprintf("%d->%d", p.Seat, *next)})
		return nil
	}
	r.skipped(ActionAdvanceTurn)
	return r.healDeadline(ctx, p.Round)
}

// healDeadline runs after losing the turn-advance race. If the round is still
// overdue under a fresh clock reading, nobody else advanced it, so push the
// deadline forward instead of leaving the table stuck.
func (r *run) healDeadline(ctx context.Context, observed *store.Round) error {
	fresh, err := r.o.store.GetRound(ctx, observed.SessionID, observed.RoundNumber)
	if err != nil {
		return transient("reread round", err)
	}
	now := sample(r.o.clock)
	if fresh.Status != store.RoundBetting || !elapsed(fresh.DecisionDeadline, now) {
		return nil
	}
	ok, err := r.o.store.UpdateRoundIf(ctx, fresh.ID,
		store.RoundCond{Status: store.Set(store.RoundBetting), DecisionDeadline: store.Set(*fresh.DecisionDeadline)},
		store.RoundPatch{DecisionDeadline: store.Set(now.Add(r.o.cfg.DecisionDeadline))}, now)
	if err != nil {
		return transient("heal deadline", err)
	}
	if !ok {
		r.skipped(ActionHealDeadline)
		return nil
	}
	seat := "none"
	if fresh.CurrentTurnPosition != nil {
		seat = fmt.Sprint(*fresh.CurrentTurnPosition)
	}
	r.took(Action{Kind: ActionHealDeadline, Detail: seat})
	return nil
}

func (r *run) applySimultaneousTimeout(ctx context.Context, p *Plan) error {
	for _, pl := range p.Players {
		if err := r.resolveDecision(ctx, pl); err != nil {
			return err
		}
	}
	players, err := r.o.store.ListPlayers(ctx, r.snap.Session.ID)
	if err != nil {
		return transient("list players", err)
	}
	if len(undecidedOf(players)) > 0 {
		return nil
	}
	return r.flipAllDecisionsIn(ctx, p.Round)
}

// flipAllDecisionsIn sets the session flag once and moves the round to showdown.
// Both writes are conditional, so a caller that finds the flag already set still
// repairs a round left in betting.
func (r *run) flipAllDecisionsIn(ctx context.Context, round *store.Round) error {
	s := r.snap.Session
	ok, err := r.o.store.UpdateSessionIf(ctx, s.ID,
		store.SessionCond{
			Status:            store.Set(store.StatusInProgress),
			AllDecisionsIn:    store.Set(false),
			AwaitingNextRound: store.Set(false),
		},
		store.SessionPatch{AllDecisionsIn: store.Set(true)}, r.now)
	if err != nil {
		return transient("flip all decisions in", err)
	}
	if ok {
		r.took(Action{Kind: ActionAllDecisionsIn, Detail: fmt.Sprintf("round %d", round.RoundNumber)})
	} else {
		r.skipped(ActionAllDecisionsIn)
	}
	ok, err = r.o.store.UpdateRoundIf(ctx, round.ID,
		store.RoundCond{Status: store.Set(store.RoundBetting)},
		store.RoundPatch{
			Status:              store.Set(store.RoundShowdown),
			CurrentTurnPosition: store.SetNull[int](),
			DecisionDeadline:    store.SetNull[time.Time](),
		}, r.now)
	if err != nil {
		return transient("round showdown", err)
	}
	if ok {
		r.took(Action{Kind: ActionRoundShowdown, Detail: fmt.Sprint(round.RoundNumber)})
	}
	return nil
}

func (r *run) applyCompleteRound(ctx context.Context, p *Plan) error {
	s := r.snap.Session
	if p.Round.Status != store.RoundCompleted {
		ok, err := r.o.store.UpdateRoundIf(ctx, p.Round.ID,
			store.RoundCond{Status: store.Set(p.Round.Status)},
			store.RoundPatch{
				Status:              store.Set(store.RoundCompleted),
				CurrentTurnPosition: store.SetNull[int](),
				DecisionDeadline:    store.SetNull[time.Time](),
			}, r.now)
		if err != nil {
			return transient("complete round", err)
		}
		if !ok {
			r.skipped(ActionCompleteRound)
			return nil
		}
		r.took(Action{Kind: ActionCompleteRound, Detail: fmt.Sprint(p.Number)})
	}
	ok, err := r.o.store.UpdateSessionIf(ctx, s.ID,
		store.SessionCond{
			Status:            store.Set(store.StatusInProgress),
			AwaitingNextRound: store.Set(false),
			AllDecisionsIn:    store.Set(true),
			UpdatedAt:         store.Set(s.UpdatedAt),
		},
		store.SessionPatch{
			AwaitingNextRound: store.Set(true),
			NextRoundNumber:   store.Set(p.Count),
		}, r.now)
	if err != nil {
		return transient("await next round", err)
	}
	if !ok {
		r.skipped(ActionAwaitNextRound)
		return nil
	}
	r.took(Action{Kind: ActionAwaitNextRound, Detail: fmt.Sprint(p.Count)})
	return nil
}

func (r *run) applyStartRound(ctx context.Context, p *Plan) error {
	payload, err := r.o.deal(r.snap.Rules, p.Number, positions(p.Players))
	if err != nil {
		return fmt.Errorf("deal round %d: %w", p.Number, err)
	}
	ok, err := r.o.store.StartRound(ctx, store.StartRoundParams{
		SessionID:        r.snap.Session.ID,
		RoundID:          store.NewIDAt(r.now),
		RoundNumber:      p.Number,
		DecisionDeadline: r.now.Add(r.o.cfg.DecisionDeadline),
		TurnPosition:     p.NextSeat,
		Payload:          payload,
		At:               r.now,
	})
	if err != nil {
		return transient("start round", err)
	}
	if !ok {
		r.skipped(ActionStartRound)
		return nil
	}
	r.took(Action{Kind: ActionStartRound, Detail: fmt.Sprint(p.Number)})
	return nil
}

func (r *run) applyRegressShortHanded(ctx context.Context) error {
	s := r.snap.Session
	ok, err := r.o.store.UpdateSessionIf(ctx, s.ID,
		store.SessionCond{Status: store.Set(store.StatusInProgress), AwaitingNextRound: store.Set(true)},
		store.SessionPatch{
			Status:            store.Set(store.StatusWaitingForPlayers),
			AwaitingNextRound: store.Set(false),
			NextRoundNumber:   store.SetNull[int](),
			CurrentRound:      store.SetNull[int](),
			AllDecisionsIn:    store.Set(false),
		}, r.now)
	if err != nil {
		return transient("regress short handed", err)
	}
	if !ok {
		r.skipped(ActionRegressWaiting)
		return nil
	}
	r.took(Action{Kind: ActionRegressWaiting, Detail: "short_handed"})
	return nil
}

func (r *run) applyGameOverAdvance(ctx context.Context, p *Plan) error {
	ok, err := r.o.store.BeginHand(ctx, store.BeginHandParams{
		SessionID:          r.snap.Session.ID,
		ObservedGameOverAt: *p.Observed,
		DealerPosition:     *p.NextSeat,
		ConfigDeadline:     r.now.Add(r.o.cfg.ConfigDeadline),
		At:                 r.now,
	})
	if err != nil {
		return transient("begin hand", err)
	}
	if !ok {
		r.skipped(ActionBeginHand)
		return nil
	}
	r.took(Action{Kind: ActionBeginHand, Detail: fmt.Sprintf("dealer %d", *p.NextSeat)})
	return nil
}

// applyResume rewrites the frozen round deadline before clearing the saved
// remaining time, so no reader sees an unpaused session with a stale deadline.
func (r *run) applyResume(ctx context.Context, p *Plan) error {
	s := r.snap.Session
	deadline := *p.Observed
	if p.Round != nil {
		ok, err := r.o.store.UpdateRoundIf(ctx, p.Round.ID,
			store.RoundCond{Status: store.Set(store.RoundBetting), DecisionDeadline: store.SetPtr(p.Round.DecisionDeadline)},
			store.RoundPatch{DecisionDeadline: store.Set(deadline)}, r.now)
		if err != nil {
			return transient("resume round deadline", err)
		}
		if !ok {
			r.skipped(ActionResume)
		}
	}
	patch := store.SessionPatch{PausedTimeRemaining: store.SetNull[int]()}
	switch {
	case s.Status.IsConfigPhase():
		patch.ConfigDeadline = store.Set(deadline)
	case s.Status == store.StatusAnteDecision:
		patch.AnteDecisionDeadline = store.Set(deadline)
	}
	ok, err := r.o.store.UpdateSessionIf(ctx, s.ID,
		store.SessionCond{
			Status:              store.Set(s.Status),
			IsPaused:            store.Set(false),
			PausedTimeRemaining: store.SetPtr(s.PausedTimeRemaining),
		}, patch, r.now)
	if err != nil {
		return transient("resume session", err)
	}
	if !ok {
		r.skipped(ActionResume)
		return nil
	}
	r.took(Action{Kind: ActionResume, Detail: fmt.Sprintf("%ds", p.Count)})
	return nil
}
