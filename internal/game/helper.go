package game

// BoardFromRows converts the 2D wire representation into a Board.
func BoardFromRows(rows [][]PlayerMark) (Board, bool) {
	var board Board
	if len(rows) != 3 {
		return board, false
	}
	for r, row := range rows {
		if len(row) != 3 {
			return board, false
		}
		for c, cell := range row {
			board[r*3+c] = cell
		}
	}
	return board, true
}

// Rows converts the board to a dynamic slice of slices for the wire protocol.
func (b Board) Rows() [][]PlayerMark {
	rows := make([][]PlayerMark, 3)
	for r := range 3 {
		rows[r] = make([]PlayerMark, 3)
		for c := range 3 {
			rows[r][c] = b[r*3+c]
		}
	}
	return rows
}
