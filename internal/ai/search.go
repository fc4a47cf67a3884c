package ai

import (
	"context"
	"time"

	"github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
)

// searchStats is filled during one Impossible search.
type searchStats struct {
	nodes int
	cuts  int
}

// impossible takes an immediate sub-board win when there is one, otherwise
// runs an alpha-beta minimax over the next s.depth plies. Ties keep the first
// move in enumeration order.
func (s *Strategy) impossible(ctx context.Context, meta domain.MetaBoard, boards [9]domain.SubBoard, moves []domain.Move) domain.Move {
	if m, ok := completingMove(meta, boards, s.mark); ok {
		return m
	}

	start := time.Now()
	var stats searchStats
	best, bestScore := moves[0], minScore
	alpha := minScore
	searched := 0
	for _, m := range moves {
		if ctx.Err() != nil {
			break
		}
		nextMeta, nextBoards := simulate(meta, boards, m, s.mark)
		score := s.minimax(nextMeta, nextBoards, s.depth-1, false, alpha, maxScore, &stats)
		searched++
		if score > bestScore {
			best, bestScore = m, score
		}
		alpha = max(alpha, bestScore)
	}

	s.logger.Debug().
		Stringer("move", best).
		Int("score", bestScore).
		Int("root_moves", len(moves)).
		Int("searched", searched).
		Int("nodes", stats.nodes).
		Int("cutoffs", stats.cuts).
		Dur("elapsed", time.Since(start)).
		Bool("cancelled", ctx.Err() != nil).
		Msg("search complete")
	return best
}

// minimax scores a position from the computer's point of view. Decided
// meta-boards score +/-(10000 + depth) so nearer wins and farther losses are
// preferred; the horizon and drawn meta-boards use the composite heuristic.
func (s *Strategy) minimax(meta domain.MetaBoard, boards [9]domain.SubBoard, depth int, maximizing bool, alpha, beta int, stats *searchStats) int {
	stats.nodes++
	switch meta.Evaluate().Outcome {
	case domain.OutcomeFor(s.mark):
		return terminalWinScore + depth
	case domain.OutcomeFor(s.mark.Opponent()):
		return -terminalWinScore - depth
	case domain.Draw:
		return compositeScore(meta, boards, s.mark)
	}
	if depth <= 0 {
		return compositeScore(meta, boards, s.mark)
	}

	moves := domain.LegalMoves(meta, boards)
	if len(moves) == 0 {
		return compositeScore(meta, boards, s.mark)
	}

	if maximizing {
		best := minScore
		for _, m := range moves {
			nextMeta, nextBoards := simulate(meta, boards, m, s.mark)
			score := s.minimax(nextMeta, nextBoards, depth-1, false, alpha, beta, stats)
			best = max(best, score)
			alpha = max(alpha, score)
			if beta <= alpha {
				stats.cuts++
				break
			}
		}
		return best
	}

	best := maxScore
	for _, m := range moves {
		nextMeta, nextBoards := simulate(meta, boards, m, s.mark.Opponent())
		score := s.minimax(nextMeta, nextBoards, depth-1, true, alpha, beta, stats)
		best = min(best, score)
		beta = min(beta, score)
		if beta <= alpha {
			stats.cuts++
			break
		}
	}
	return best
}
