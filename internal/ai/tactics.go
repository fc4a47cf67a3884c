package ai

import "github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"

// completingCell returns the empty cell that would give mark a line on b:
// the first line, in evaluation order, holding two of mark and one empty.
func completingCell(b domain.SubBoard, mark domain.Cell) (int, bool) {
	for _, ln := range domain.Lines {
		own, empty := 0, -1
		for _, i := range ln {
			switch b[i] {
			case mark:
				own++
			case domain.Empty:
				empty = i
			}
		}
		if own == 2 && empty >= 0 {
			return empty, true
		}
	}
	return 0, false
}

// completingMove scans the live sub-boards in order for a move that wins one for mark.
func completingMove(meta domain.MetaBoard, boards [9]domain.SubBoard, mark domain.Cell) (domain.Move, bool) {
	for b := range boards {
		if meta[b] != domain.Undecided {
			continue
		}
		if c, ok := completingCell(boards[b], mark); ok {
			return domain.Move{Board: b, Cell: c}, true
		}
	}
	return domain.Move{}, false
}

// tactical returns a sub-board win for the computer, else a block of the opponent's.
func (s *Strategy) tactical(meta domain.MetaBoard, boards [9]domain.SubBoard) (domain.Move, bool) {
	if m, ok := completingMove(meta, boards, s.mark); ok {
		return m, true
	}
	return completingMove(meta, boards, s.mark.Opponent())
}

func (s *Strategy) medium(meta domain.MetaBoard, boards [9]domain.SubBoard, moves []domain.Move) domain.Move {
	if m, ok := s.tactical(meta, boards); ok {
		return m
	}
	return s.random(moves)
}

// hard plays tactics first, then the move whose resulting meta-board scores best.
// Ties keep the first move in enumeration order.
func (s *Strategy) hard(meta domain.MetaBoard, boards [9]domain.SubBoard, moves []domain.Move) domain.Move {
	if m, ok := s.tactical(meta, boards); ok {
		return m
	}
	best, bestScore := moves[0], minScore
	for _, m := range moves {
		next, _ := simulate(meta, boards, m, s.mark)
		if score := metaScore(next, s.mark); score > bestScore {
			best, bestScore = m, score
		}
	}
	return best
}

// simulate plays m for mark on copies of the boards and re-derives that
// sub-board's outcome.
func simulate(meta domain.MetaBoard, boards [9]domain.SubBoard, m domain.Move, mark domain.Cell) (domain.MetaBoard, [9]domain.SubBoard) {
	boards[m.Board][m.Cell] = mark
	if w := boards[m.Board].Evaluate(); w.Decided() {
		meta[m.Board] = w.Outcome
	}
	return meta, boards
}
