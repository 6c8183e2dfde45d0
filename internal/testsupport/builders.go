package testsupport

import (
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

// Dialogue is a short conversation used across workflow tests. Index 3 is
// the final turn.
var Dialogue = []string{
	"A: I missed the bus this morning.",
	"B: Oh no, were you late for work?",
	"A: Yes, my boss was angry.",
	"B: You should buy an alarm clock.",
}

// Fact builds a fact item.
func Fact(id, head, relation, tail string) submission.Item {
	return submission.Item{ID: id, Kind: stage.ItemFact, Head: head, Relation: relation, Tail: tail}
}

// AnchoredFact builds a fact with 1-based head and tail turns.
func AnchoredFact(id, head, relation, tail string, headTurn, tailTurn int) submission.Item {
	item := Fact(id, head, relation, tail)
	item.HeadTurn, item.TailTurn = &headTurn, &tailTurn
	return item
}

// Alternative builds a free-text alternative justified by knowledgeIDs.
func Alternative(id, text string, knowledgeIDs ...string) submission.Item {
	return submission.Item{ID: id, Kind: stage.ItemAlternative, Text: text, KnowledgeIDs: knowledgeIDs}
}

// Select marks a candidate as selected or not.
func Select(item submission.Item, selected bool) submission.Item {
	item.Selected = &selected
	return item
}

// Grade attaches a reviewer grade.
func Grade(item submission.Item, quality int) submission.Item {
	item.Quality = &quality
	return item
}

// Submission builds a record with the shared dialogue as content.
func Submission(kind stage.Kind, taskID, assignmentID, workerID string, items ...submission.Item) submission.Submission {
	return submission.Submission{
		Stage:        kind,
		TaskID:       taskID,
		AssignmentID: assignmentID,
		WorkerID:     workerID,
		ElapsedTime:  30,
		Content: submission.Content{
			Dialogue:  Dialogue[:len(Dialogue)-1],
			FinalTurn: Dialogue[len(Dialogue)-1],
		},
		Items: items,
	}
}
