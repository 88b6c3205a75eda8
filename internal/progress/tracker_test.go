package progress

import (
	"testing"
	"time"

	"valetcore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEmpty(t *testing.T) {
	assert.Equal(t, 0, Compute(nil))
	assert.Equal(t, 0, Compute([]models.ServiceTaskItem{}))
}

func TestComputeWeighted(t *testing.T) {
	tasks := []models.ServiceTaskItem{
		{Name: "Wash", AllocatedTime: 20, Completed: true},
		{Name: "Polish", AllocatedTime: 30, Completed: false},
		{Name: "Interior", AllocatedTime: 50, Completed: true},
	}
	// 70 of 100 allocated minutes done
	assert.Equal(t, 70, Compute(tasks))
}

func TestComputeRounds(t *testing.T) {
	tasks := []models.ServiceTaskItem{
		{Name: "A", AllocatedTime: 1, Completed: true},
		{Name: "B", AllocatedTime: 1},
		{Name: "C", AllocatedTime: 1},
	}
	// 100/3 rounds to 33
	assert.Equal(t, 33, Compute(tasks))

	tasks[1].Completed = true
	// 200/3 rounds to 67
	assert.Equal(t, 67, Compute(tasks))
}

func TestComputeAllDone(t *testing.T) {
	tasks := []models.ServiceTaskItem{
		{Name: "A", AllocatedTime: 45, Completed: true},
		{Name: "B", AllocatedTime: 15, Completed: true},
	}
	assert.Equal(t, 100, Compute(tasks))
}

func TestComputeZeroAllocatedTime(t *testing.T) {
	tasks := []models.ServiceTaskItem{
		{Name: "A", AllocatedTime: 0, Completed: true},
	}
	assert.Equal(t, 0, Compute(tasks))
}

func TestPlaceholderTasks(t *testing.T) {
	tasks := PlaceholderTasks()
	require.Len(t, tasks, len(models.PlaceholderTaskNames))

	for i, task := range tasks {
		assert.Equal(t, models.PlaceholderTaskNames[i], task.Name)
		assert.False(t, task.Completed)
		assert.Zero(t, task.AllocatedTime)
	}

	// no allocated time means progress stays pinned at zero
	assert.Equal(t, 0, Compute(tasks))
}

func TestBuildTasks(t *testing.T) {
	pkg := &models.ServicePackage{
		Type: "full-valet",
		Tasks: []models.PackageTask{
			{Name: "Exterior wash", AllocatedTime: 40},
			{Name: "Interior detail", AllocatedTime: 80},
		},
	}

	tasks := BuildTasks("VLT-1", pkg)
	require.Len(t, tasks, 2)
	assert.Equal(t, "VLT-1-task-1", tasks[0].ID)
	assert.Equal(t, "Exterior wash", tasks[0].Name)
	assert.Equal(t, 40, tasks[0].AllocatedTime)
	assert.Equal(t, "VLT-1-task-2", tasks[1].ID)

	assert.Nil(t, BuildTasks("VLT-1", nil))
}

func TestRegenerateTasksCarriesCompletion(t *testing.T) {
	done := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)
	old := []models.ServiceTaskItem{
		{ID: "VLT-1-task-1", Name: "Exterior Wash", AllocatedTime: 30, Completed: true, ActualTime: 25, CompletedAt: &done},
		{ID: "VLT-1-task-2", Name: "Wax", AllocatedTime: 30, Completed: true},
	}

	pkg := &models.ServicePackage{
		Type: "premium",
		Tasks: []models.PackageTask{
			{Name: "exterior wash", AllocatedTime: 45},
			{Name: "Engine bay", AllocatedTime: 60},
		},
	}

	fresh := RegenerateTasks("VLT-1", pkg, old)
	require.Len(t, fresh, 2)

	// name match is case-insensitive; allocation comes from the new package
	assert.True(t, fresh[0].Completed)
	assert.Equal(t, 45, fresh[0].AllocatedTime)
	assert.Equal(t, 25, fresh[0].ActualTime)
	require.NotNil(t, fresh[0].CompletedAt)
	assert.Equal(t, done, *fresh[0].CompletedAt)

	// tasks dropped by the new package do not survive
	assert.False(t, fresh[1].Completed)
	assert.Equal(t, "Engine bay", fresh[1].Name)
}

func TestCompleteTask(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	tasks := []models.ServiceTaskItem{
		{ID: "t1", Name: "Wash", AllocatedTime: 30},
		{ID: "t2", Name: "Dry", AllocatedTime: 10},
	}

	assert.True(t, CompleteTask(tasks, "t1", now))
	assert.True(t, tasks[0].Completed)
	require.NotNil(t, tasks[0].CompletedAt)
	assert.Equal(t, now, *tasks[0].CompletedAt)
	assert.False(t, tasks[1].Completed)

	assert.False(t, CompleteTask(tasks, "missing", now))
}

func TestCompleteTaskIdempotent(t *testing.T) {
	first := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)
	tasks := []models.ServiceTaskItem{{ID: "t1", Name: "Wash", AllocatedTime: 30}}

	require.True(t, CompleteTask(tasks, "t1", first))
	require.True(t, CompleteTask(tasks, "t1", later))

	// the first completion timestamp sticks
	assert.Equal(t, first, *tasks[0].CompletedAt)
}
