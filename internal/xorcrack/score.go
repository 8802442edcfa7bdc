package xorcrack

// Weights applied per byte by Score.
const (
	WeightFrequent      = 1000
	WeightFrequentUpper = 990 // below lowercase, so case twins never tie
	WeightLetter        = 100
	WeightPrintable     = -100
	WeightUnprintable   = -1000
)

// frequentChars are the most common characters in English text, space included.
const frequentChars = "etaoin shrdlu"

var scoreTable = buildScoreTable()

func buildScoreTable() [256]int {
	var table [256]int
	for i := range table {
		b := byte(i)
		switch {
		case isLetter(b):
			table[i] = WeightLetter
		case b == '\n' || b == '\r' || b == '\t' || (b >= 0x20 && b < 0x7f):
			table[i] = WeightPrintable
		default:
			table[i] = WeightUnprintable
		}
	}
	for i := 0; i < len(frequentChars); i++ {
		c := frequentChars[i]
		table[c] = WeightFrequent
		if isLetter(c) {
			table[c-'a'+'A'] = WeightFrequentUpper
		}
	}
	return table
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Score estimates how much buf looks like English text. Frequent English
// characters score highest, other letters less, and everything else counts
// against the buffer.
func Score(buf []byte) int {
	var n int
	for _, b := range buf {
		n += scoreTable[b]
	}
	return n
}

func byteWeight(b byte) int {
	return scoreTable[b]
}
