package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hksdtp/salespulse/internal/daemon"
	"github.com/hksdtp/salespulse/internal/lock"
	"github.com/hksdtp/salespulse/internal/model"
	"github.com/hksdtp/salespulse/internal/setup"
	"github.com/hksdtp/salespulse/internal/status"
	"github.com/hksdtp/salespulse/internal/store"
	"github.com/hksdtp/salespulse/internal/uds"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(os.Args[2:])
	case "daemon":
		runDaemon(os.Args[2:])
	case "sync":
		runSync(os.Args[2:])
	case "tasks":
		runTasks(os.Args[2:])
	case "plan":
		runPlan(os.Args[2:])
	case "task":
		runTask(os.Args[2:])
	case "user":
		runUser(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "version":
		fmt.Printf("salespulse %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runInit(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: salespulse init <project_dir> [project_name]")
		os.Exit(1)
	}
	name := ""
	if len(args) > 1 {
		name = args[1]
	}
	if err := setup.Run(args[0], name); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("initialized %s\n", filepath.Join(args[0], setup.Dir))
}

func runDaemon(_ []string) {
	baseDir := findBaseDir()
	if baseDir == "" {
		fmt.Fprintln(os.Stderr, "error: .salespulse/ directory not found. Run 'salespulse init <dir>' first.")
		os.Exit(1)
	}

	cfg, err := loadConfig(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	d, err := daemon.New(baseDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create daemon: %v\n", err)
		os.Exit(1)
	}

	if err := d.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "daemon: %v\n", err)
		os.Exit(1)
	}
}

func runSync(args []string) {
	var ownerID string
	all := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--owner":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--owner requires a value")
				os.Exit(1)
			}
			i++
			ownerID = args[i]
		case "--all":
			all = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: salespulse sync [--owner <id> | --all]\n", args[i])
			os.Exit(1)
		}
	}
	if !all && ownerID == "" {
		fmt.Fprintln(os.Stderr, "usage: salespulse sync [--owner <id> | --all]")
		os.Exit(1)
	}

	command := "sync"
	var params any
	if all {
		command = "sync_all"
	} else {
		params = uds.SyncParams{OwnerID: ownerID}
	}

	resp := send(command, params)
	var data uds.SyncData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		fmt.Fprintf(os.Stderr, "sync: bad response: %v\n", err)
		os.Exit(1)
	}
	if all {
		fmt.Printf("synced %d owners: %d created, %d skipped, %d duplicates\n",
			data.Owners, data.Created, data.Skipped, data.Duplicates)
		return
	}
	fmt.Printf("synced %s: %d created, %d skipped, %d duplicates\n",
		data.OwnerID, data.Created, data.Skipped, data.Duplicates)
}

func runTasks(args []string) {
	var viewerID string
	jsonOutput := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--viewer":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--viewer requires a value")
				os.Exit(1)
			}
			i++
			viewerID = args[i]
		case "--json":
			jsonOutput = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: salespulse tasks --viewer <id> [--json]\n", args[i])
			os.Exit(1)
		}
	}
	if viewerID == "" {
		fmt.Fprintln(os.Stderr, "usage: salespulse tasks --viewer <id> [--json]")
		os.Exit(1)
	}

	resp := send("tasks", uds.TasksParams{ViewerID: viewerID})
	var data daemon.TasksData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		fmt.Fprintf(os.Stderr, "tasks: bad response: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "tasks: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("%d tasks visible to %s\n", len(data.Tasks), data.ViewerID)
	for _, t := range data.Tasks {
		marker := " "
		if t.FromPlan {
			marker = "*"
		}
		fmt.Printf("  %s [%s] %-10s %s (%s)\n", marker, t.Status, t.OwnerID, t.Title, t.ID)
	}
}

func runPlan(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: salespulse plan <add> [options]")
		os.Exit(1)
	}
	switch args[0] {
	case "add":
		runPlanAdd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown plan subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "usage: salespulse plan add [options]")
		os.Exit(1)
	}
}

func runPlanAdd(args []string) {
	plan := model.Plan{
		Category:   model.PlanCategoryOther,
		Priority:   model.PriorityNormal,
		Visibility: model.VisibilityPersonal,
		Status:     model.PlanStatusPending,
	}

	for i := 0; i < len(args); i++ {
		flag := args[i]
		if i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", flag)
			os.Exit(1)
		}
		i++
		val := args[i]
		switch flag {
		case "--owner":
			plan.OwnerID = val
		case "--title":
			plan.Title = val
		case "--description":
			plan.Description = val
		case "--category":
			plan.Category = model.PlanCategory(val)
		case "--priority":
			plan.Priority = model.Priority(val)
		case "--start-date":
			plan.StartDate = val
		case "--end-date":
			plan.EndDate = val
		case "--start-time":
			plan.StartTime = val
		case "--end-time":
			plan.EndTime = val
		case "--location":
			plan.Location = val
		case "--notes":
			plan.Notes = val
		case "--creator":
			plan.CreatorName = val
		case "--visibility":
			plan.Visibility = model.Visibility(val)
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\n", flag)
			os.Exit(1)
		}
	}

	if plan.OwnerID == "" || plan.Title == "" || plan.StartDate == "" {
		fmt.Fprintln(os.Stderr, "required: --owner, --title, --start-date")
		os.Exit(1)
	}
	if plan.EndDate == "" {
		plan.EndDate = plan.StartDate
	}

	now := time.Now().UTC().Format(time.RFC3339)
	plan.ID = model.NewID()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	s := openStore()
	if err := s.PutPlan(plan); err != nil {
		fmt.Fprintf(os.Stderr, "plan add: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("plan %s created for %s\n", plan.ID, plan.OwnerID)
}

func runTask(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: salespulse task <add> [options]")
		os.Exit(1)
	}
	switch args[0] {
	case "add":
		runTaskAdd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown task subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "usage: salespulse task add [options]")
		os.Exit(1)
	}
}

func runTaskAdd(args []string) {
	task := model.Task{
		Category:   model.TaskCategoryOther,
		Priority:   model.PriorityNormal,
		Visibility: model.VisibilityPersonal,
		Status:     model.TaskStatusTodo,
	}

	for i := 0; i < len(args); i++ {
		flag := args[i]
		if i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", flag)
			os.Exit(1)
		}
		i++
		val := args[i]
		switch flag {
		case "--owner":
			task.OwnerID = val
		case "--title":
			task.Title = val
		case "--description":
			task.Description = val
		case "--category":
			task.Category = model.TaskCategory(val)
		case "--priority":
			task.Priority = model.Priority(val)
		case "--date":
			task.Date = val
		case "--time":
			task.Time = val
		case "--team":
			task.TeamID = val
		case "--assignee":
			task.AssigneeID = val
		case "--location":
			task.Location = val
		case "--visibility":
			task.Visibility = model.Visibility(val)
		case "--share-with":
			task.SharedWith = append(task.SharedWith, val)
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\n", flag)
			os.Exit(1)
		}
	}

	if task.OwnerID == "" || task.Title == "" {
		fmt.Fprintln(os.Stderr, "required: --owner, --title")
		os.Exit(1)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	task.ID = model.NewID()
	task.CreatedAt = now
	task.UpdatedAt = now

	s := openStore()
	if err := s.PutTask(task); err != nil {
		fmt.Fprintf(os.Stderr, "task add: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("task %s created for %s\n", task.ID, task.OwnerID)
}

func runUser(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: salespulse user <add> [options]")
		os.Exit(1)
	}
	switch args[0] {
	case "add":
		runUserAdd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown user subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "usage: salespulse user add [options]")
		os.Exit(1)
	}
}

func runUserAdd(args []string) {
	user := model.User{Role: model.RoleMember}

	for i := 0; i < len(args); i++ {
		flag := args[i]
		if i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", flag)
			os.Exit(1)
		}
		i++
		val := args[i]
		switch flag {
		case "--id":
			user.ID = val
		case "--name":
			user.Name = val
		case "--role":
			user.Role = model.Role(val)
		case "--team":
			user.TeamID = val
		case "--department":
			user.Department = val
		case "--region":
			user.Region = val
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\n", flag)
			os.Exit(1)
		}
	}

	if user.ID == "" || user.Name == "" {
		fmt.Fprintln(os.Stderr, "required: --id, --name")
		os.Exit(1)
	}

	s := openStore()
	if err := s.PutUser(user); err != nil {
		fmt.Fprintf(os.Stderr, "user add: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("user %s (%s) saved\n", user.ID, user.Role)
}

func runStatus(args []string) {
	jsonOutput := false
	for _, a := range args {
		switch a {
		case "--json":
			jsonOutput = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\nusage: salespulse status [--json]\n", a)
			os.Exit(1)
		}
	}

	baseDir := findBaseDir()
	if baseDir == "" {
		fmt.Fprintln(os.Stderr, "error: .salespulse/ directory not found. Run 'salespulse init <dir>' first.")
		os.Exit(1)
	}

	if err := status.Run(baseDir, jsonOutput); err != nil {
		fmt.Fprintf(os.Stderr, "status: %v\n", err)
		os.Exit(1)
	}
}

// send issues one request to the daemon socket and exits on any failure.
func send(command string, params any) *uds.Response {
	baseDir := findBaseDir()
	if baseDir == "" {
		fmt.Fprintln(os.Stderr, "error: .salespulse/ directory not found. Run 'salespulse init <dir>' first.")
		os.Exit(1)
	}

	client := uds.NewClient(filepath.Join(baseDir, uds.DefaultSocketName))
	resp, err := client.SendCommand(command, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
	if !resp.Success {
		code := ""
		msg := "unknown error"
		if resp.Error != nil {
			code = resp.Error.Code
			msg = resp.Error.Message
		}
		fmt.Fprintf(os.Stderr, "%s failed [%s]: %s\n", command, code, msg)
		os.Exit(1)
	}
	return resp
}

func openStore() *store.FileStore {
	baseDir := findBaseDir()
	if baseDir == "" {
		fmt.Fprintln(os.Stderr, "error: .salespulse/ directory not found. Run 'salespulse init <dir>' first.")
		os.Exit(1)
	}
	return store.NewFileStore(baseDir, lock.NewMutexMap())
}

// findBaseDir searches for .salespulse/ in the current directory and ancestors.
func findBaseDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, setup.Dir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func loadConfig(baseDir string) (model.Config, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, "config.yaml"))
	if err != nil {
		return model.Config{}, fmt.Errorf("read config.yaml: %w", err)
	}
	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.Config{}, fmt.Errorf("parse config.yaml: %w", err)
	}
	return cfg, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `salespulse %s — Retail sales plan and task engine

Usage: salespulse <command> [options]

Project:
  init <dir> [name]        Initialize .salespulse/ directory
  status [--json]          Show engine status
  daemon                   Run the sync daemon

Records:
  plan add [options]       Create a plan (--owner, --title, --start-date, ...)
  task add [options]       Create a task (--owner, --title, ...)
  user add [options]       Create or update a user (--id, --name, --role, ...)

Daemon commands:
  sync --owner <id>        Promote one owner's due plans to tasks
  sync --all               Promote due plans for every owner
  tasks --viewer <id>      List tasks visible to a viewer [--json]

Other:
  version                  Print version
  help                     Show this message
`, version)
}
