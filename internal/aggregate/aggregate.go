package aggregate

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"ckcrowd/internal/canonical"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

// Options configures one aggregation pass.
type Options struct {
	Stage         stage.Kind
	Grouping      stage.Grouping
	Threshold     int
	NoneThreshold int
	// Workers bounds how many groups merge concurrently.
	Workers       int
	Canonicalizer *canonical.Canonicalizer
}

type contribution struct {
	index int
	sub   *submission.Submission
	items []submission.Item
	// withTask marks the contribution that carries task-level fields
	// (new items) for its record.
	withTask bool
}

type group struct {
	key           string
	taskID        string
	contributions []contribution
}

// Aggregate merges submissions into tasks. The output order follows the
// first appearance of each group in subs, so identical input always yields
// identical output.
func Aggregate(ctx context.Context, subs []submission.Submission, opts Options) ([]Task, error) {
	if opts.Canonicalizer == nil {
		opts.Canonicalizer = canonical.New(canonical.Options{})
	}
	if !opts.Grouping.Valid() {
		opts.Grouping = opts.Stage.Definition().Grouping
	}
	def := opts.Stage.Definition()

	groups, noneByTask, err := route(subs, opts)
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tasks[i] = merge(groups[i], def, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Grouping == stage.GroupByTaskItems {
		uniqueAcrossTask(tasks, !def.Selection())
	}
	for i := range tasks {
		tasks[i].NoneVotes = noneByTask[tasks[i].TaskID]
		Gate(&tasks[i], opts.Threshold, opts.NoneThreshold)
	}
	return tasks, nil
}

// Gate recomputes the accepted count and suppression flag of t.
func Gate(t *Task, threshold, noneThreshold int) {
	t.Accepted = 0
	for _, it := range t.Items {
		if it.Accepted(threshold) {
			t.Accepted++
		}
	}
	t.Suppressed = noneThreshold > 0 && t.NoneVotes >= noneThreshold
}

// route assigns each record's items to groups and rejects duplicate
// assignments. It runs sequentially so group order is deterministic.
func route(subs []submission.Submission, opts Options) ([]*group, map[string]int, error) {
	var order []*group
	byKey := make(map[string]*group)
	seen := make(map[string]int)
	noneByTask := make(map[string]int)
	tasksWithGroups := make(map[string]struct{})
	var taskOrder []string
	taskFirst := make(map[string]int)

	getGroup := func(key, taskID string) *group {
		if grp, ok := byKey[key]; ok {
			return grp
		}
		grp := &group{key: key, taskID: taskID}
		byKey[key] = grp
		order = append(order, grp)
		tasksWithGroups[taskID] = struct{}{}
		return grp
	}

	for i := range subs {
		sub := &subs[i]
		dupKey := sub.TaskID + "\x00" + sub.AssignmentID
		if first, ok := seen[dupKey]; ok {
			return nil, nil, &DuplicateError{GroupKey: sub.TaskID, AssignmentID: sub.AssignmentID, FirstIndex: first, SecondIndex: i}
		}
		seen[dupKey] = i
		if _, ok := taskFirst[sub.TaskID]; !ok {
			taskFirst[sub.TaskID] = i
			taskOrder = append(taskOrder, sub.TaskID)
		}
		if sub.OptionNone {
			noneByTask[sub.TaskID]++
		}

		if opts.Grouping == stage.GroupByTask {
			grp := getGroup(sub.TaskID, sub.TaskID)
			grp.contributions = append(grp.contributions, contribution{index: i, sub: sub, items: sub.Items, withTask: true})
			continue
		}

		buckets := make(map[string][]submission.Item)
		var bucketOrder []string
		for _, item := range sub.Items {
			key := itemSetKey(sub, item, opts.Canonicalizer)
			if _, ok := buckets[key]; !ok {
				bucketOrder = append(bucketOrder, key)
			}
			buckets[key] = append(buckets[key], item)
		}
		for n, key := range bucketOrder {
			grp := getGroup(key, sub.TaskID)
			grp.contributions = append(grp.contributions, contribution{index: i, sub: sub, items: buckets[key], withTask: n == 0})
		}
		if len(bucketOrder) == 0 && len(sub.NewItems) > 0 {
			grp := getGroup(sub.TaskID, sub.TaskID)
			grp.contributions = append(grp.contributions, contribution{index: i, sub: sub, withTask: true})
		}
	}

	// A task whose records carried nothing but "none" votes still needs a row.
	for _, taskID := range taskOrder {
		if _, ok := tasksWithGroups[taskID]; ok {
			continue
		}
		grp := getGroup(taskID, taskID)
		for i := range subs {
			if subs[i].TaskID == taskID {
				grp.contributions = append(grp.contributions, contribution{index: i, sub: &subs[i], withTask: true})
			}
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return firstIndex(order[a]) < firstIndex(order[b])
	})
	return order, noneByTask, nil
}

func firstIndex(g *group) int {
	if len(g.contributions) == 0 {
		return 0
	}
	return g.contributions[0].index
}

// itemSetKey groups an alternative by its task and the canonical set of facts
// it was written from.
func itemSetKey(sub *submission.Submission, item submission.Item, canon *canonical.Canonicalizer) string {
	known := sub.KnowledgeByID()
	keys := make([]string, 0, len(item.KnowledgeIDs))
	dedup := make(map[string]struct{}, len(item.KnowledgeIDs))
	for _, id := range item.KnowledgeIDs {
		id = strings.TrimSpace(id)
		key := "id:" + id
		if fact, ok := known[id]; ok {
			if k, ok := canon.FactKey(fact.Head, fact.RelationText(), fact.Tail); ok {
				key = string(k)
			}
		}
		if _, ok := dedup[key]; ok {
			continue
		}
		dedup[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return sub.TaskID + "#" + strings.Join(keys, "|")
}

type itemAccumulator struct {
	items  []Item
	index  map[canonical.Key]int
	voters []map[string]struct{}
}

func newAccumulator() *itemAccumulator {
	return &itemAccumulator{index: make(map[canonical.Key]int)}
}

func (a *itemAccumulator) slot(key canonical.Key, item submission.Item, dedupable bool) int {
	if pos, ok := a.index[key]; ok {
		return pos
	}
	pos := len(a.items)
	a.index[key] = pos
	a.items = append(a.items, Item{Key: key, Item: item, Dedupable: dedupable})
	a.voters = append(a.voters, make(map[string]struct{}))
	return pos
}

// propose records an authored item. A worker counts once per item no matter
// how often they repeat it.
func (a *itemAccumulator) propose(canon *canonical.Canonicalizer, sub *submission.Submission, pos int, item submission.Item) {
	key, ok := canon.Key(item)
	if !ok {
		key = uniqueKey(sub, pos, item)
	}
	slot := a.slot(key, item, ok)
	merged := &a.items[slot]
	merged.Sources = appendSource(merged.Sources, sourceID(sub, pos, item))
	if merged.Item.Quality == nil && item.Quality != nil {
		merged.Item.Quality = item.Quality
	}
	if _, voted := a.voters[slot][sub.WorkerID]; voted {
		return
	}
	a.voters[slot][sub.WorkerID] = struct{}{}
	merged.Votes++
	merged.Contributors = append(merged.Contributors, sub.WorkerID)
}

// rate records a selection judgement over a shown candidate.
func (a *itemAccumulator) rate(canon *canonical.Canonicalizer, sub *submission.Submission, item submission.Item) {
	key, ok := canon.Key(item)
	if !ok {
		key = canonical.Key("id\t" + item.ID)
	}
	slot := a.slot(key, item, ok)
	merged := &a.items[slot]
	merged.Sources = appendSource(merged.Sources, item.ID)
	if merged.Item.Quality == nil && item.Quality != nil {
		merged.Item.Quality = item.Quality
	}
	if _, rated := a.voters[slot][sub.WorkerID]; rated {
		return
	}
	a.voters[slot][sub.WorkerID] = struct{}{}
	value := 0
	if item.IsSelected() {
		value = 1
		merged.Votes++
		merged.Contributors = append(merged.Contributors, sub.WorkerID)
	}
	merged.Ratings = append(merged.Ratings, Rating{WorkerID: sub.WorkerID, AssignmentID: sub.AssignmentID, Value: value})
}

func merge(g *group, def stage.Definition, opts Options) Task {
	canon := opts.Canonicalizer
	first := g.contributions[0].sub
	task := Task{
		GroupKey: g.key,
		TaskID:   g.taskID,
		DataID:   first.DataID,
		Stage:    def.Kind,
		Content:  first.Content,
	}

	items := newAccumulator()
	newItems := newAccumulator()
	seenAssignments := make(map[string]struct{})
	seenWorkers := make(map[string]struct{})
	for _, c := range g.contributions {
		sub := c.sub
		if _, ok := seenAssignments[sub.AssignmentID]; !ok {
			seenAssignments[sub.AssignmentID] = struct{}{}
			task.Assignments = append(task.Assignments, sub.AssignmentID)
		}
		if _, ok := seenWorkers[sub.WorkerID]; !ok {
			seenWorkers[sub.WorkerID] = struct{}{}
			task.Workers = append(task.Workers, sub.WorkerID)
		}
		for pos, item := range c.items {
			if def.Selection() {
				items.rate(canon, sub, item)
			} else {
				items.propose(canon, sub, pos, item)
			}
		}
		if c.withTask {
			for pos, item := range sub.NewItems {
				newItems.propose(canon, sub, pos, item)
			}
		}
	}
	task.Items = items.items
	if task.Items == nil {
		task.Items = []Item{}
	}
	task.NewItems = newItems.items
	used := make(map[string]struct{}, len(task.Items)+len(task.NewItems))
	if def.Selection() {
		for _, it := range task.Items {
			used[it.Item.ID] = struct{}{}
		}
	} else {
		assignIDs(task.Items, "item-", used)
	}
	assignIDs(task.NewItems, "new-", used)
	return task
}

func uniqueKey(sub *submission.Submission, pos int, item submission.Item) canonical.Key {
	return canonical.Key("u\t" + sub.AssignmentID + "\t" + strconv.Itoa(pos) + "\t" + item.ID)
}

// assignIDs gives every merged item an id that is unique within the task,
// keeping the first submitted id where it is free.
func assignIDs(items []Item, prefix string, used map[string]struct{}) {
	for i := range items {
		id := items[i].Item.ID
		if _, taken := used[id]; id == "" || taken {
			id = nextFreeID(prefix, i+1, used)
			items[i].Item.ID = id
		}
		used[id] = struct{}{}
	}
}

func nextFreeID(prefix string, n int, used map[string]struct{}) string {
	for ; ; n++ {
		id := prefix + strconv.Itoa(n)
		if _, taken := used[id]; !taken {
			return id
		}
	}
}

// uniqueAcrossTask renames ids that repeat between groups of the same task.
// Groups are visited in output order, so the first group keeps its ids.
func uniqueAcrossTask(tasks []Task, renameItems bool) {
	used := make(map[string]map[string]struct{})
	for i := range tasks {
		seen := used[tasks[i].TaskID]
		if seen == nil {
			seen = make(map[string]struct{})
			used[tasks[i].TaskID] = seen
		}
		if renameItems {
			renameTaken(tasks[i].Items, "item-", seen)
		} else {
			for _, it := range tasks[i].Items {
				seen[it.Item.ID] = struct{}{}
			}
		}
		renameTaken(tasks[i].NewItems, "new-", seen)
	}
}

func renameTaken(items []Item, prefix string, seen map[string]struct{}) {
	for j := range items {
		id := items[j].Item.ID
		if _, taken := seen[id]; taken {
			id = nextFreeID(prefix, 1, seen)
			items[j].Item.ID = id
		}
		seen[id] = struct{}{}
	}
}

func sourceID(sub *submission.Submission, pos int, item submission.Item) string {
	if item.ID != "" {
		return item.ID
	}
	return sub.AssignmentID + ":" + strconv.Itoa(pos)
}

func appendSource(sources []string, id string) []string {
	for _, existing := range sources {
		if existing == id {
			return sources
		}
	}
	return append(sources, id)
}
