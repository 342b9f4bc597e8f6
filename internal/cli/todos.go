package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"go-todo-api/internal/ui"
	"go-todo-api/pkg/client"
)

func (a *app) listCmd() *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your todos, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			todos, err := c.ListTodos(cmd.Context())
			if err != nil {
				return err
			}
			if pending {
				open := todos[:0]
				for _, t := range todos {
					if !t.Completed {
						open = append(open, t)
					}
				}
				todos = open
			}
			writeTodoTable(a.out, todos)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only show todos that are not completed")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var priority, due string
	cmd := &cobra.Command{
		Use:   "add TEXT",
		Short: "Create a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := client.NewTodo{Text: args[0], Priority: priority}
			if due != "" {
				t, err := parseDue(due)
				if err != nil {
					return err
				}
				in.DueDate = &t
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			todo, err := c.CreateTodo(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s\n", todo.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD or RFC3339)")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			todo, err := c.GetTodo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			writeTodo(a.out, todo)
			return nil
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	var (
		text, priority, due     string
		clearPriority, clearDue bool
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u client.TodoUpdate
			flags := cmd.Flags()
			if flags.Changed("text") {
				u.Text = &text
			}
			if flags.Changed("priority") {
				u.Priority = &priority
			}
			u.ClearPriority = clearPriority
			if flags.Changed("due") {
				t, err := parseDue(due)
				if err != nil {
					return err
				}
				u.DueDate = &t
			}
			u.ClearDueDate = clearDue
			if u == (client.TodoUpdate{}) {
				return errors.New("nothing to change: pass --text, --priority, --due, --clear-priority or --clear-due")
			}
			return a.update(cmd, args[0], u)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "new text")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().BoolVar(&clearPriority, "clear-priority", false, "remove the priority")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	cmd.MarkFlagsMutuallyExclusive("priority", "clear-priority")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	return cmd
}

func (a *app) completeCmd(name string, completed bool) *cobra.Command {
	short := "Mark a todo as completed"
	if !completed {
		short = "Mark a todo as not completed"
	}
	return &cobra.Command{
		Use:   name + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.update(cmd, args[0], client.TodoUpdate{Completed: &completed})
		},
	}
}

func (a *app) update(cmd *cobra.Command, id string, u client.TodoUpdate) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	todo, err := c.UpdateTodo(cmd.Context(), id, u)
	if err != nil {
		return err
	}
	writeTodo(a.out, todo)
	return nil
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.DeleteTodo(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse todos interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			return ui.Run(cmd.Context(), c)
		},
	}
}

func writeTodoTable(w io.Writer, todos []client.Todo) {
	if len(todos) == 0 {
		fmt.Fprintln(w, "No todos")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tDUE\tTEXT")
	for _, t := range todos {
		done := ""
		if t.Completed {
			done = "x"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, done, dash(t.Priority), formatDue(t.DueDate), t.Text)
	}
	_ = tw.Flush()
}

func writeTodo(w io.Writer, t *client.Todo) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", t.ID)
	fmt.Fprintf(tw, "Text:\t%s\n", t.Text)
	fmt.Fprintf(tw, "Completed:\t%t\n", t.Completed)
	fmt.Fprintf(tw, "Priority:\t%s\n", dash(t.Priority))
	fmt.Fprintf(tw, "Due:\t%s\n", formatDue(t.DueDate))
	fmt.Fprintf(tw, "Created:\t%s\n", t.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated:\t%s\n", t.UpdatedAt.Format(time.RFC3339))
	_ = tw.Flush()
}

func formatDue(d *time.Time) string {
	if d == nil {
		return "-"
	}
	return d.Format(time.RFC3339)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
