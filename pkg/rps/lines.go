package rps

// Spoken lines for each beat of the game. Pools are variables so a
// build can swap in its own script.

var startLines = []string{
	"Challenge accepted! Let's play rock paper scissors!",
	"Ready to lose to a machine? Let the battle begin!",
	"I hope you brought your best strategy. First match starts now.",
}

var shootPhrases = []string{
	"Rock, Paper, Scissors, shoot!",
	"On the count of three... Rock, Paper, Scissors, go!",
	"Ready? Rock, Paper, Scissors, now!",
}

var winLines = []string{
	"Yes! I win again! Victory is mine!",
	"Beep boop, my programming prevails! Better luck next time, human.",
	"Another flawless victory for the Marich operating system!",
}

var loseLines = []string{
	"What?! I mean, you won! Ah, frustration!",
	"A temporary setback. I let you win that one, I promise.",
	"Curse this fleshy adversary! You got lucky, I'll admit it.",
}

var drawLines = []string{
	"A draw! Great minds think alike, but next time I'll crush you!",
	"Stalemate! Let's try to break the deadlock.",
	"We tied! Time for a rematch.",
}

var nextMatchLines = []string{
	"Again! I'll win next time!",
	"One more round, I need to redeem myself.",
	"Your luck won't last. Let's go again.",
}

var endLines = []string{
	"Thanks for the game! I enjoyed our battle of wits... and hands.",
	"Game over. Come back when you're ready for a rematch!",
	"Exiting game mode. See you next time!",
}

// lineNoGesture is spoken when the capture window closes without a
// readable hand.
const lineNoGesture = "I couldn't quite see your hand! Let's call that a draw."
