package progress

import (
	"fmt"
	"math"
	"strings"
	"time"

	"valetcore/internal/models"
)

// Compute returns the weighted completion percentage of a task list.
// Weighting is by allocated time, not task count; an empty list is 0.
func Compute(tasks []models.ServiceTaskItem) int {
	var total, done int
	for _, t := range tasks {
		total += t.AllocatedTime
		if t.Completed {
			done += t.AllocatedTime
		}
	}
	if total == 0 {
		return 0
	}

	pct := int(math.Round(100 * float64(done) / float64(total)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// PlaceholderTasks is the fixed checklist served while a booking is still in
// inspection, before real tasks exist. Progress stays pinned at 0.
func PlaceholderTasks() []models.ServiceTaskItem {
	tasks := make([]models.ServiceTaskItem, 0, len(models.PlaceholderTaskNames))
	for i, name := range models.PlaceholderTaskNames {
		tasks = append(tasks, models.ServiceTaskItem{
			ID:   fmt.Sprintf("placeholder-%d", i+1),
			Name: name,
		})
	}
	return tasks
}

// BuildTasks resolves a package into the booking's task list.
func BuildTasks(bookingID string, pkg *models.ServicePackage) []models.ServiceTaskItem {
	if pkg == nil {
		return nil
	}
	tasks := make([]models.ServiceTaskItem, 0, len(pkg.Tasks))
	for i, tpl := range pkg.Tasks {
		tasks = append(tasks, models.ServiceTaskItem{
			ID:            fmt.Sprintf("%s-task-%d", bookingID, i+1),
			Name:          tpl.Name,
			AllocatedTime: tpl.AllocatedTime,
		})
	}
	return tasks
}

// RegenerateTasks rebuilds the list for a new package, carrying completion
// state over from the old list by case-insensitive name match.
func RegenerateTasks(bookingID string, pkg *models.ServicePackage, old []models.ServiceTaskItem) []models.ServiceTaskItem {
	fresh := BuildTasks(bookingID, pkg)

	prev := make(map[string]models.ServiceTaskItem, len(old))
	for _, t := range old {
		prev[strings.ToLower(t.Name)] = t
	}

	for i := range fresh {
		if match, ok := prev[strings.ToLower(fresh[i].Name)]; ok {
			fresh[i].Completed = match.Completed
			fresh[i].ActualTime = match.ActualTime
			fresh[i].CompletedAt = match.CompletedAt
		}
	}
	return fresh
}

// CompleteTask marks the task with the given id done and timestamps it.
// Returns false when the id is not in the list.
func CompleteTask(tasks []models.ServiceTaskItem, taskID string, now time.Time) bool {
	for i := range tasks {
		if tasks[i].ID != taskID {
			continue
		}
		if !tasks[i].Completed {
			tasks[i].Completed = true
			tasks[i].CompletedAt = &now
		}
		return true
	}
	return false
}
