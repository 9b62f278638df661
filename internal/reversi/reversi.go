package reversi

const (
	// Size is the board edge length; Cells the total cell count.
	Size  = 8
	Cells = Size * Size
)

const (
	DiskBlack = "black"
	DiskWhite = "white"

	EmptyCell = ""
)

// Board is a fixed-size grid of cell states, indexed row-major.
type Board [Cells]string

var directions = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// InitialBoard - returns the canonical starting position: four center cells
// filled, black to move first.
func InitialBoard() Board {
	var board Board

	board[3*Size+3] = DiskWhite
	board[3*Size+4] = DiskBlack
	board[4*Size+3] = DiskBlack
	board[4*Size+4] = DiskWhite

	return board
}

// OtherDisk - returns the alternate disk.
func OtherDisk(disk string) string {
	if disk == DiskBlack {
		return DiskWhite
	}

	return DiskBlack
}

// LegalMoves - maps every playable empty cell to the opponent cells it would
// flip. A cell that flips nothing is not a legal move and never appears.
func LegalMoves(board Board, disk string) map[int][]int {
	moves := make(map[int][]int)
	opponent := OtherDisk(disk)

	for cell := range board {
		if board[cell] != EmptyCell {
			continue
		}

		var flips []int
		row, col := cell/Size, cell%Size

		for _, dir := range directions {
			run := make([]int, 0, Size)

			r, c := row+dir[0], col+dir[1]
			for r >= 0 && r < Size && c >= 0 && c < Size && board[r*Size+c] == opponent {
				run = append(run, r*Size+c)
				r += dir[0]
				c += dir[1]
			}

			if len(run) == 0 {
				continue
			}

			// the run only counts if it terminates in our own disk
			if r < 0 || r >= Size || c < 0 || c >= Size {
				continue
			}

			if board[r*Size+c] == disk {
				flips = append(flips, run...)
			}
		}

		if len(flips) > 0 {
			moves[cell] = flips
		}
	}

	return moves
}

// ApplyMove - returns a new board with index and every flip set to disk.
// The input board is never mutated.
func ApplyMove(board Board, index int, disk string, flips []int) Board {
	next := board

	next[index] = disk
	for _, cell := range flips {
		next[cell] = disk
	}

	return next
}

// CountDisks - returns the black and white disk totals.
func CountDisks(board Board) (int, int) {
	var black, white int

	for _, cell := range board {
		switch cell {
		case DiskBlack:
			black++
		case DiskWhite:
			white++
		}
	}

	return black, white
}
