package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/supplymap/supplyq"
)

const tsLayout = "2006-01-02 15:04:05"

func renderTable(w io.Writer, header []string, rows [][]string) {
	data := pterm.TableData{header}
	data = append(data, rows...)
	if err := pterm.DefaultTable.WithHasHeader(true).WithWriter(w).WithData(data).Render(); err != nil {
		pterm.Error.WithWriter(w).Println("render table:", err)
	}
}

func renderResults(w io.Writer, results []supplyq.TaskResult) {
	if len(results) == 0 {
		pterm.Info.WithWriter(w).Println("No pending tasks")
		return
	}
	rows := make([][]string, 0, len(results))
	flagged := 0
	for _, r := range results {
		review := ""
		if r.RequiresReview {
			review = "yes"
			flagged++
		}
		detail := r.Summary
		if r.Status == supplyq.StatusFailed {
			detail = r.Error
		}
		rows = append(rows, []string{r.TaskID, r.AgentType, string(r.Status), review, r.Duration.Round(time.Millisecond).String(), detail})
	}
	renderTable(w, []string{"Task", "Agent", "Status", "Review", "Took", "Summary"}, rows)
	if flagged > 0 {
		pterm.Warning.WithWriter(w).Printfln("%d tasks require human review (supplyq review)", flagged)
	}
}

func renderReport(w io.Writer, rep supplyq.Report) {
	fmt.Fprintln(w, pterm.Bold.Sprint("Tasks"))
	rows := make([][]string, 0, len(supplyq.AllStatuses))
	for _, st := range supplyq.AllStatuses {
		rows = append(rows, []string{string(st), strconv.Itoa(rep.Tasks[st])})
	}
	renderTable(w, []string{"Status", "Count"}, rows)

	fmt.Fprintln(w, pterm.Bold.Sprint("Coverage"))
	keys := make([]string, 0, len(rep.Coverage))
	for k := range rep.Coverage {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows = rows[:0]
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(rep.Coverage[k])})
	}
	renderTable(w, []string{"Active", "Count"}, rows)

	pterm.Info.WithWriter(w).Printfln("Review queue: %d (generated %s)", rep.ReviewQueue, rep.GeneratedAt.Format(tsLayout))
}

func renderTasks(w io.Writer, tasks []*supplyq.Task) {
	if len(tasks) == 0 {
		pterm.Info.WithWriter(w).Println("No tasks")
		return
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID, t.AgentType, string(t.Status), strconv.Itoa(t.Priority),
			t.AssignedAt.Local().Format(tsLayout), strconv.Itoa(t.RetryCount), t.Summary,
		})
	}
	renderTable(w, []string{"Task", "Agent", "Status", "Priority", "Assigned", "Retries", "Summary"}, rows)
}

func renderReviewQueue(w io.Writer, items []supplyq.ReviewItem) {
	if len(items) == 0 {
		pterm.Success.WithWriter(w).Println("Review queue is empty")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.TaskID, it.AgentType, strconv.Itoa(it.Priority),
			it.CompletedAt.Local().Format(tsLayout), it.Summary,
		})
	}
	renderTable(w, []string{"Task", "Agent", "Priority", "Completed", "Summary"}, rows)
}
