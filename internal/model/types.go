package model

import "time"

// Core domain types shared by the optimizer, loader, store and API.

type Point struct {
    X float64 `json:"x" yaml:"x"`
    Y float64 `json:"y" yaml:"y"`
}

type Vehicle struct {
    ID        int     `json:"id" yaml:"id"`
    MaxWeight float64 `json:"maxWeight" yaml:"maxWeight"`
    Battery   float64 `json:"battery" yaml:"battery"` // energy budget, consumed 1:1 per unit distance
    Speed     float64 `json:"speed" yaml:"speed"`     // distance units per hour
    Start     Point   `json:"start" yaml:"start"`
}

type Delivery struct {
    ID       int     `json:"id" yaml:"id"`
    Pos      Point   `json:"pos" yaml:"pos"`
    Weight   float64 `json:"weight" yaml:"weight"`
    Priority int     `json:"priority" yaml:"priority"`
    Window   Window  `json:"timeWindow" yaml:"timeWindow"`
}

// NoFlyZone is a closed polygon; edge i joins vertex i and vertex (i+1) mod n.
// Active is carried through but not consulted by the geometry checks.
type NoFlyZone struct {
    ID       int     `json:"id" yaml:"id"`
    Vertices []Point `json:"vertices" yaml:"vertices"`
    Active   Window  `json:"activeTime" yaml:"activeTime"`
}

type Scenario struct {
    Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
    Vehicles   []Vehicle   `json:"vehicles" yaml:"vehicles"`
    Deliveries []Delivery  `json:"deliveries" yaml:"deliveries"`
    Zones      []NoFlyZone `json:"noFlyZones" yaml:"noFlyZones"`
}

// ScenarioSummary is the list view of a stored scenario.
type ScenarioSummary struct {
    ID         string    `json:"id"`
    TenantID   string    `json:"tenantId"`
    Name       string    `json:"name,omitempty"`
    Vehicles   int       `json:"vehicles"`
    Deliveries int       `json:"deliveries"`
    Zones      int       `json:"noFlyZones"`
    CreatedAt  time.Time `json:"createdAt"`
}

// Route is one vehicle's visiting order.
type Route struct {
    VehicleID  int   `json:"vehicleId"`
    Deliveries []int `json:"deliveries"`
}

type OptimizeRequest struct {
    ScenarioID      string             `json:"scenarioId,omitempty"`
    Scenario        *Scenario          `json:"scenario,omitempty"`
    Seed            int64              `json:"seed,omitempty"`
    PopulationSize  int                `json:"populationSize,omitempty"`
    Generations     int                `json:"generations,omitempty"`
    CrossoverRate   *float64           `json:"crossoverRate,omitempty"`
    MutationRate    *float64           `json:"mutationRate,omitempty"`
    NoFlyPenalty    *float64           `json:"noFlyPenalty,omitempty"`
    StartTime       string             `json:"startTime,omitempty"`
    Weights         map[string]float64 `json:"weights,omitempty"`
    Workers         int                `json:"workers,omitempty"`
    RepairOffspring bool               `json:"repairOffspring,omitempty"`
}

type Run struct {
    ID             string    `json:"id"`
    TenantID       string    `json:"tenantId"`
    ScenarioID     string    `json:"scenarioId,omitempty"`
    Status         string    `json:"status"`
    Seed           int64     `json:"seed"`
    Routes         []Route   `json:"routes"`
    Fitness        float64   `json:"fitness"`
    Delivered      int       `json:"delivered"`
    Violations     int       `json:"violations"`
    TimeViolations int       `json:"timeViolations"`
    Energy         float64   `json:"energy"`
    Generations    int       `json:"generations"`
    History        []float64 `json:"history,omitempty"` // best-ever fitness per generation
    Summary        *Summary  `json:"summary,omitempty"`
    Config         RunConfig `json:"config"`
    Error          string    `json:"error,omitempty"`
    ElapsedMs      int64     `json:"elapsedMs"`
    CreatedAt      time.Time `json:"createdAt"`
}

// RunConfig is the effective optimizer configuration a run used, after the
// tenant overlay and request overrides.
type RunConfig struct {
    PopulationSize  int                `json:"populationSize"`
    Generations     int                `json:"generations"`
    CrossoverRate   float64            `json:"crossoverRate"`
    MutationRate    float64            `json:"mutationRate"`
    NoFlyPenalty    float64            `json:"noFlyPenalty"`
    StartTime       Clock              `json:"startTime"`
    Weights         map[string]float64 `json:"weights"`
    RepairOffspring bool               `json:"repairOffspring,omitempty"`
}

// Summary is the reporting view of a finished run.
type Summary struct {
    Assigned       int     `json:"assigned"`
    Total          int     `json:"total"`
    Percent        float64 `json:"percent"`
    Fitness        float64 `json:"fitness"`
    RuleViolations int     `json:"ruleViolations"`
    TimeViolations int     `json:"timeViolations"`
}

// PathRequest asks for a route between two graph nodes of a stored
// scenario. Positive ids are deliveries; FromVehicle, when set, starts the
// search at that vehicle's start position instead of From.
type PathRequest struct {
    ScenarioID  string `json:"scenarioId"`
    From        int    `json:"from"`
    FromVehicle int    `json:"fromVehicle,omitempty"`
    To          int    `json:"to"`
}

type SubscriptionRequest struct {
    TenantID string   `json:"tenantId"`
    URL      string   `json:"url"`
    Events   []string `json:"events"`
    Secret   string   `json:"secret"`
}

type Subscription struct {
    ID       string   `json:"id"`
    TenantID string   `json:"tenantId"`
    URL      string   `json:"url"`
    Events   []string `json:"events"`
    Secret   string   `json:"secret,omitempty"`
}
