package ai

import "github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"

// Heuristic weights. They are tuned for how the tiers feel to play against,
// so keep them as they are.
const (
	metaWinScore     = 1000
	metaOwnTwo       = 10
	metaOpponentTwo  = -20
	metaScale        = 100
	subOwnTwo        = 5
	subOpponentTwo   = -10
	claimedBoard     = 20
	terminalWinScore = 10000

	minScore = -1 << 30
	maxScore = 1 << 30
)

// lineCounts returns how many slots of a line hold own and opponent marks.
func lineCounts[T domain.Slot](b [9]T, ln [3]int, own, opp T) (int, int) {
	o, p := 0, 0
	for _, i := range ln {
		switch b[i] {
		case own:
			o++
		case opp:
			p++
		}
	}
	return o, p
}

// metaScore rates a meta-board for mark: +/-1000 once decided, otherwise
// +10 per open line mark holds two of and -20 per open line the opponent
// holds two of.
func metaScore(meta domain.MetaBoard, mark domain.Cell) int {
	own, opp := domain.OutcomeFor(mark), domain.OutcomeFor(mark.Opponent())
	switch meta.Evaluate().Outcome {
	case own:
		return metaWinScore
	case opp:
		return -metaWinScore
	}
	score := 0
	for _, ln := range domain.Lines {
		o, p := lineCounts([9]domain.Outcome(meta), ln, own, opp)
		if o == 2 && p == 0 {
			score += metaOwnTwo
		}
		if p == 2 && o == 0 {
			score += metaOpponentTwo
		}
	}
	return score
}

// compositeScore adds cell-level threats and claimed sub-boards to the
// scaled meta score so the shallow search can see sub-board tactics.
func compositeScore(meta domain.MetaBoard, boards [9]domain.SubBoard, mark domain.Cell) int {
	score := metaScore(meta, mark) * metaScale
	opp := mark.Opponent()
	for _, b := range boards {
		for _, ln := range domain.Lines {
			o, p := lineCounts([9]domain.Cell(b), ln, mark, opp)
			if o == 2 && p == 0 {
				score += subOwnTwo
			}
			if p == 2 && o == 0 {
				score += subOpponentTwo
			}
		}
	}
	score += claimedBoard * meta.Claimed(mark)
	score -= claimedBoard * meta.Claimed(opp)
	return score
}
