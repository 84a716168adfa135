package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/fakturownia"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/odoo"
	"bitbucket.org/mmdatafocus/production_backend/reports"
	"bitbucket.org/mmdatafocus/production_backend/workflow"
)

func main() {
	monthID := flag.Int("month", 0, "Month id to work on")
	step := flag.String("step", "", "Workflow step: "+stepNames())
	create := flag.String("create", "", "Create a month (YYYY-MM); \"default\" picks the month of 30 days ago")
	list := flag.Bool("list", false, "List months")
	reportPath := flag.String("report", "", "Write the month report (XLSX) to this path; needs -month")
	flag.Parse()

	if *create == "" && !*list && (*monthID <= 0 || (*step == "" && *reportPath == "")) {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	if err := models.MigrateTable(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	logger := config.GetLogger()

	switch {
	case *create != "":
		input, err := parseNewMonth(*create, time.Now())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		month, err := models.CreateMonth(ctx, &input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create month: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created month %s (id=%d)\n", month.String(), month.ID)

	case *list:
		months, err := models.ListMonths(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list months: %v\n", err)
			os.Exit(1)
		}
		for _, m := range months {
			fmt.Printf("%d\t%s\n", m.ID, m.String())
		}

	case *reportPath != "":
		month, err := models.LoadMonthGraph(db.WithContext(ctx), *monthID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load month %d: %v\n", *monthID, err)
			os.Exit(1)
		}
		f, err := os.Create(*reportPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		odooCfg, _ := config.LoadOdooConfig()
		if err := reports.WriteMonthReport(f, month, odooCfg.URL); err != nil {
			fmt.Fprintf(os.Stderr, "write report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("report written to %s\n", *reportPath)

	default:
		if os.Getenv("REDIS_ADDRESS") != "" {
			redisCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			config.ConnectRedisWithRetry(redisCtx)
			cancel()
		}

		fakturowniaCfg, err := config.LoadFakturowniaConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fakturownia config: %v\n", err)
			os.Exit(1)
		}
		odooCfg, err := config.LoadOdooConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "odoo config: %v\n", err)
			os.Exit(1)
		}
		invoicing, err := fakturownia.NewClient(fakturowniaCfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		erp, err := odoo.NewClient(odooCfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer erp.Close()

		runner := workflow.NewRunner(db, logger, invoicing, erp, workflow.OptionsFromConfig(fakturowniaCfg, odooCfg))
		run, err := runner.Run(ctx, *monthID, models.WorkflowStep(*step), models.SyncTriggeredCli)
		if run != nil {
			fmt.Printf("run %d: %s records=%d warnings=%d duration=%dms\n",
				run.ID, run.Status, run.RecordsSynced, run.WarningCount, run.DurationMs)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "step %s failed: %v\n", *step, err)
			os.Exit(1)
		}
	}
}

func parseNewMonth(value string, now time.Time) (models.NewMonth, error) {
	if value == "default" {
		return models.DefaultNewMonth(now), nil
	}
	parts := strings.Split(value, "-")
	if len(parts) != 2 {
		return models.NewMonth{}, fmt.Errorf("invalid month %q, want YYYY-MM", value)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return models.NewMonth{}, fmt.Errorf("invalid year %q", parts[0])
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return models.NewMonth{}, fmt.Errorf("invalid month %q", parts[1])
	}
	return models.NewMonth{Year: year, Month: month}, nil
}

func stepNames() string {
	names := make([]string, 0, len(models.AllWorkflowSteps))
	for _, s := range models.AllWorkflowSteps {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
