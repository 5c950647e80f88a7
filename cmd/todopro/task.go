package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/todopro/todopro-cli/internal/config"
	"github.com/todopro/todopro-cli/internal/model"
	"github.com/todopro/todopro-cli/internal/store"
	"github.com/todopro/todopro-cli/internal/ui"
)

var (
	taskProject  string
	taskPriority int
	taskDue      string
	taskLabels   []string
	taskShowDone bool
)

var taskCmd = &cobra.Command{
	Use:     "task",
	GroupID: "data",
	Short:   "Manage tasks in the local store",
	Long: `Create, list and complete tasks in the local store. Changes sync to
the remote service on the next 'todopro sync push'.`,
}

var taskAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Add a task",
	Long: `Add a task to the local store.

Due dates accept natural language:

  todopro task add "Water the plants" --due "tomorrow at 9am"
  todopro task add "File taxes" --due "next friday" --priority 4`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := loadProfile()
		st := openStore(p)
		defer st.Close()

		task := model.Task{
			Content:   strings.Join(args, " "),
			ProjectID: taskProject,
			Priority:  taskPriority,
			Labels:    taskLabels,
		}
		if task.ProjectID == "" {
			task.ProjectID = store.InboxProjectID
		}

		if taskDue != "" {
			due, err := parseDue(taskDue)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			task.DueDate = &due
		}

		fields, err := model.MarshalFields(task)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		rec, err := st.Repo(model.Tasks).Create(context.Background(), model.Record{Fields: fields})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error adding task: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Added task %s\n", ui.RenderPass("✓"), rec.ID)
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Run: func(cmd *cobra.Command, args []string) {
		p := loadProfile()
		st := openStore(p)
		defer st.Close()

		records, err := st.Repo(model.Tasks).ListActive(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing tasks: %v\n", err)
			os.Exit(1)
		}

		if !taskShowDone {
			var open []model.Record
			for _, rec := range records {
				var task model.Task
				if err := model.UnmarshalFields(&rec, &task); err == nil && task.IsCompleted {
					continue
				}
				open = append(open, rec)
			}
			records = open
		}

		fmt.Print(ui.RenderTasks(records))
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := loadProfile()
		st := openStore(p)
		defer st.Close()

		ctx := context.Background()
		repo := st.Repo(model.Tasks)

		rec, err := repo.GetByID(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var task model.Task
		if err := model.UnmarshalFields(&rec, &task); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		now := time.Now().UTC()
		task.IsCompleted = true
		task.CompletedAt = &now

		rec.Fields, err = model.MarshalFields(task)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		rec.UpdatedAt = now

		if _, err := repo.Update(ctx, rec.ID, rec); err != nil {
			fmt.Fprintf(os.Stderr, "Error completing task: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Completed %s\n", ui.RenderPass("✓"), task.Content)
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := loadProfile()
		st := openStore(p)
		defer st.Close()

		if err := st.Repo(model.Tasks).Delete(context.Background(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting task: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Deleted task %s\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskProject, "project", "", "project id (defaults to Inbox)")
	taskAddCmd.Flags().IntVar(&taskPriority, "priority", 1, "priority, 1 (lowest) to 4 (highest)")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "due date in natural language")
	taskAddCmd.Flags().StringSliceVar(&taskLabels, "label", nil, "label to attach (repeatable)")
	taskListCmd.Flags().BoolVar(&taskShowDone, "all", false, "include completed tasks")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskRmCmd)
}

// openStore opens the profile's local store or exits.
func openStore(p *config.Profile) *store.Store {
	st, err := store.Open(p.DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening local store: %v\n", err)
		os.Exit(1)
	}
	if err := st.InitSchema(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing local store: %v\n", err)
		os.Exit(1)
	}
	return st
}

// parseDue turns natural language ("tomorrow at 9am") into a timestamp.
func parseDue(s string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(s, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse due date %q: %w", s, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("could not understand due date %q", s)
	}
	return result.Time, nil
}
