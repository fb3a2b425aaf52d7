package rps

// Move is one hand shape.
type Move int

const (
	Rock Move = iota
	Paper
	Scissors
)

func (m Move) String() string {
	switch m {
	case Rock:
		return "rock"
	case Paper:
		return "paper"
	case Scissors:
		return "scissors"
	default:
		return "unknown"
	}
}

// beats reports whether m wins against other.
func (m Move) beats(other Move) bool {
	switch m {
	case Rock:
		return other == Scissors
	case Paper:
		return other == Rock
	case Scissors:
		return other == Paper
	default:
		return false
	}
}

// Outcome is a round verdict from the robot's side.
type Outcome int

const (
	Draw Outcome = iota
	RobotWins
	PlayerWins
)

func (o Outcome) String() string {
	switch o {
	case RobotWins:
		return "robot wins"
	case PlayerWins:
		return "player wins"
	default:
		return "draw"
	}
}

// judge scores a round.
func judge(robot, player Move) Outcome {
	switch {
	case robot == player:
		return Draw
	case robot.beats(player):
		return RobotWins
	default:
		return PlayerWins
	}
}

// moveFromFingers maps a finger count to a move. A fist or a stray
// thumb reads as rock, a full or nearly full hand as paper, and two or
// three fingers as scissors. Anything else does not count as a throw.
func moveFromFingers(n int) (Move, bool) {
	switch n {
	case 0, 1:
		return Rock, true
	case 2, 3:
		return Scissors, true
	case 4, 5:
		return Paper, true
	default:
		return 0, false
	}
}
