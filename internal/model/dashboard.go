package model

// DashboardSummary holds the headline figures of the dashboard page.
type DashboardSummary struct {
	TotalUsers      int     `json:"totalUsers"`
	ActiveUsers     int     `json:"activeUsers"`
	TotalOrders     int     `json:"totalOrders"`
	TotalRevenue    float64 `json:"totalRevenue"`
	NewUsers        int     `json:"newUsers"`
	PendingOrders   int     `json:"pendingOrders"`
	CompletedOrders int     `json:"completedOrders"`
	CancelledOrders int     `json:"cancelledOrders"`
	UserGrowth      float64 `json:"userGrowth"`
	OrderGrowth     float64 `json:"orderGrowth"`
	RevenueGrowth   float64 `json:"revenueGrowth"`
	ConversionRate  float64 `json:"conversionRate"`
}

// Dataset is one series of a chart. BackgroundColor holds a single colour
// for line and bar charts and one colour per slice for pie charts.
type Dataset struct {
	Label           string   `json:"label"`
	Data            []int    `json:"data"`
	BackgroundColor []string `json:"backgroundColor,omitempty"`
	BorderColor     string   `json:"borderColor,omitempty"`
	BorderWidth     int      `json:"borderWidth,omitempty"`
}

// ChartData is the payload of every chart endpoint.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// ActivityType classifies an activity log entry.
type ActivityType string

const (
	ActivityLogin  ActivityType = "login"
	ActivityOrder  ActivityType = "order"
	ActivityUser   ActivityType = "user"
	ActivitySystem ActivityType = "system"
)

// Activity is an entry of the recent activity feed.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Timestamp   string       `json:"timestamp"`
	User        *UserRef     `json:"user,omitempty"`
}

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is an entry of the to-do widget.
type Task struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Completed bool     `json:"completed"`
	Priority  Priority `json:"priority"`
	DueDate   string   `json:"dueDate,omitempty"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}
