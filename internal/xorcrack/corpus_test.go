package xorcrack

import "strings"

// testCorpus is plain English prose long enough to exercise the full 2..40
// key size window.
var testCorpus = strings.Repeat(`It was a warm afternoon in late summer, and the fields stretched out toward the hills like a rumpled green blanket. Nobody in the village expected anything unusual to happen that day, yet by evening the whole town would be talking about the stranger who arrived on the last train with nothing but a battered suitcase and a letter addressed to the mayor.
He asked for directions to the old mill, thanked the station master politely, and walked off down the dusty road without once looking back. The children followed him as far as the bridge before their mothers called them home for supper, and the dogs barked at him from every yard he passed.
When he reached the mill he set the suitcase down on the step, read the letter one more time under the fading light, and knocked three times on the heavy wooden door. For a long while there was no answer at all, and then slowly the door swung open.
`, 2)
