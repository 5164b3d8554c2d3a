package mockapi

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/jpalmerr/halolight/internal/model"
)

// dataset is the canned content served by the API. It is generated once,
// relative to the time the API is created.
type dataset struct {
	users         []model.User
	summary       model.DashboardSummary
	visits        model.ChartData
	sales         model.ChartData
	pie           model.ChartData
	activities    []model.Activity
	tasks         []model.Task
	notifications []model.Notification
}

var (
	departments = []string{"Engineering", "Product", "Operations", "Marketing"}
	positions   = []string{"Engineer", "Manager", "Lead", "Specialist"}
	roles       = []model.Role{model.RoleAdmin, model.RoleManager, model.RoleEditor, model.RoleViewer}
	statuses    = []model.UserStatus{model.UserActive, model.UserInactive, model.UserSuspended}
)

const userCount = 20

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func newDataset(now time.Time, rng *rand.Rand) *dataset {
	return &dataset{
		users:         mockUsers(now),
		summary:       mockSummary(),
		visits:        mockVisits(now, rng),
		sales:         mockSales(),
		pie:           mockPie(),
		activities:    mockActivities(now),
		tasks:         mockTasks(),
		notifications: mockNotifications(now),
	}
}

func mockUsers(now time.Time) []model.User {
	users := make([]model.User, userCount)
	for i := range users {
		n := i + 1
		users[i] = model.User{
			ID:          strconv.Itoa(n),
			Name:        fmt.Sprintf("User %d", n),
			Email:       fmt.Sprintf("user%d@example.com", n),
			Avatar:      model.AvatarURL(fmt.Sprintf("user%d", n)),
			Role:        roles[i%len(roles)],
			Status:      statuses[i%len(statuses)],
			Department:  departments[i%len(departments)],
			Position:    positions[i%len(positions)],
			Phone:       fmt.Sprintf("1380000%04d", i),
			CreatedAt:   stamp(now.Add(-time.Duration(i) * 7 * 24 * time.Hour)),
			LastLoginAt: stamp(now.Add(-time.Duration(i) * time.Hour)),
		}
	}
	return users
}

func mockSummary() model.DashboardSummary {
	return model.DashboardSummary{
		TotalUsers:      12580,
		ActiveUsers:     8432,
		TotalOrders:     45678,
		TotalRevenue:    1256789.5,
		NewUsers:        1256,
		PendingOrders:   234,
		CompletedOrders: 44890,
		CancelledOrders: 554,
		UserGrowth:      12.5,
		OrderGrowth:     8.3,
		RevenueGrowth:   15.7,
		ConversionRate:  3.2,
	}
}

// mockVisits covers the 30 days ending today.
func mockVisits(now time.Time, rng *rand.Rand) model.ChartData {
	const days = 30
	labels := make([]string, days)
	views := make([]int, days)
	visitors := make([]int, days)
	for i := range days {
		d := now.AddDate(0, 0, -(days - 1 - i))
		labels[i] = fmt.Sprintf("%d/%d", int(d.Month()), d.Day())
		views[i] = 2000 + rng.IntN(5000)
		visitors[i] = 500 + rng.IntN(2000)
	}
	return model.ChartData{
		Labels: labels,
		Datasets: []model.Dataset{
			{Label: "Page Views", Data: views, BorderColor: "#3b82f6", BackgroundColor: []string{"rgba(59, 130, 246, 0.1)"}},
			{Label: "Unique Visitors", Data: visitors, BorderColor: "#10b981", BackgroundColor: []string{"rgba(16, 185, 129, 0.1)"}},
		},
	}
}

func mockSales() model.ChartData {
	return model.ChartData{
		Labels: []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		Datasets: []model.Dataset{
			{
				Label:           "Revenue",
				Data:            []int{65000, 59000, 80000, 81000, 56000, 55000, 72000, 88000, 95000, 110000, 125000, 142000},
				BackgroundColor: []string{"#3b82f6"},
			},
			{
				Label:           "Orders",
				Data:            []int{2800, 2400, 3200, 3500, 2100, 2300, 2900, 3600, 4100, 4800, 5200, 5800},
				BackgroundColor: []string{"#10b981"},
			},
		},
	}
}

func mockPie() model.ChartData {
	return model.ChartData{
		Labels: []string{"Direct", "Search", "Social", "Referral"},
		Datasets: []model.Dataset{{
			Label:           "Traffic Sources",
			Data:            []int{35, 30, 20, 15},
			BackgroundColor: []string{"#3b82f6", "#10b981", "#f59e0b", "#ef4444"},
		}},
	}
}

func mockActivities(now time.Time) []model.Activity {
	ago := func(d time.Duration) string { return stamp(now.Add(-d)) }
	return []model.Activity{
		{
			ID: "1", Type: model.ActivityUser, Title: "New user registered",
			Description: "Alice completed account registration", Timestamp: ago(5 * time.Minute),
			User: &model.UserRef{ID: "1", Name: "Alice", Avatar: model.AvatarURL("alice")},
		},
		{
			ID: "2", Type: model.ActivityOrder, Title: "Order completed",
			Description: "Order #12345 has been delivered", Timestamp: ago(10 * time.Minute),
		},
		{
			ID: "3", Type: model.ActivityLogin, Title: "User signed in",
			Description: "Bob signed in from Berlin", Timestamp: ago(15 * time.Minute),
			User: &model.UserRef{ID: "2", Name: "Bob", Avatar: model.AvatarURL("bob")},
		},
		{
			ID: "4", Type: model.ActivitySystem, Title: "System updated",
			Description: "Security patches were applied", Timestamp: ago(30 * time.Minute),
		},
		{
			ID: "5", Type: model.ActivityOrder, Title: "New order",
			Description: "Received order #12346 for $2,580", Timestamp: ago(time.Hour),
		},
	}
}

func mockTasks() []model.Task {
	return []model.Task{
		{ID: "1", Title: "Finish the product prototype", Priority: model.PriorityHigh, DueDate: "2024-12-20"},
		{ID: "2", Title: "Review the user feedback report", Completed: true, Priority: model.PriorityMedium},
		{ID: "3", Title: "Update the API docs", Priority: model.PriorityLow, DueDate: "2024-12-25"},
		{ID: "4", Title: "Deploy the new release", Priority: model.PriorityHigh, DueDate: "2024-12-18"},
		{ID: "5", Title: "Team weekly sync", Completed: true, Priority: model.PriorityMedium},
	}
}

func mockNotifications(now time.Time) []model.Notification {
	ago := func(d time.Duration) string { return stamp(now.Add(-d)) }
	return []model.Notification{
		{ID: "1", Type: model.NotificationInfo, Title: "Scheduled maintenance", Message: "The system will be updated tonight at 23:00", CreatedAt: ago(30 * time.Minute)},
		{ID: "2", Type: model.NotificationSuccess, Title: "Task completed", Message: "The product launch is done", CreatedAt: ago(time.Hour)},
		{ID: "3", Type: model.NotificationWarning, Title: "Security alert", Message: "Unusual sign-in attempt detected", Read: true, CreatedAt: ago(2 * time.Hour)},
		{ID: "4", Type: model.NotificationError, Title: "Payment failed", Message: "Payment for order #12340 could not be processed", Read: true, CreatedAt: ago(24 * time.Hour)},
	}
}
