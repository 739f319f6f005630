package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/patientdesk/patientdesk/internal/config"
	"github.com/patientdesk/patientdesk/internal/domain/address"
	"github.com/patientdesk/patientdesk/internal/domain/diagnosis"
	"github.com/patientdesk/patientdesk/internal/domain/errs"
	"github.com/patientdesk/patientdesk/internal/domain/patient"
	"github.com/patientdesk/patientdesk/internal/export"
	"github.com/patientdesk/patientdesk/internal/platform/db"
	"github.com/patientdesk/patientdesk/internal/report"
)

// app holds the wired-up stores for one command invocation. Lifecycle equals
// process runtime: opened before the command body runs, closed after.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	sqldb    *sql.DB
	tx       db.TxRunner
	diags    diagnosis.Repository
	addrs    address.Repository
	patients *patient.Service
	importer *export.Importer
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	sqldb, err := db.Open(cfg.DBPath, cfg.DBBusyTimeoutMS)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx, sqldb, logger); err != nil {
		sqldb.Close()
		return nil, err
	}

	tx := db.NewTxRunner(sqldb)
	diags := diagnosis.NewRepoSQLite(sqldb)
	addrs := address.NewRepoSQLite(sqldb)
	patients := patient.NewService(tx, patient.NewRepoSQLite(sqldb), diags, addrs, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		sqldb:    sqldb,
		tx:       tx,
		diags:    diags,
		addrs:    addrs,
		patients: patients,
		importer: export.NewImporter(tx, patients, diags, addrs, logger),
	}, nil
}

func (a *app) Close() {
	a.sqldb.Close()
}

// withApp wraps a command body with store setup and teardown.
func withApp(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, cmd, args)
	}
}

// friendly translates the store's recoverable outcomes into messages; other
// errors pass through untouched.
func friendly(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrDuplicate):
		return fmt.Errorf("a patient with the same name and birthdate already exists")
	case errors.Is(err, errs.ErrNotFound):
		return fmt.Errorf("no such record (it may have been removed)")
	default:
		return err
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "patientdesk",
		Short:         "Local patient records manager",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(initDBCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(diagnosesCmd())
	rootCmd.AddCommand(addressesCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create or patch the database schema",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			// openApp already ran EnsureSchema; reaching here means it worked.
			fmt.Printf("Database ready at %s\n", a.cfg.DBPath)
			return nil
		}),
	}
}

func patientFlags(cmd *cobra.Command) {
	cmd.Flags().String("first", "", "First name")
	cmd.Flags().String("middle", "", "Middle name")
	cmd.Flags().String("last", "", "Last name")
	cmd.Flags().String("ext", "", "Name suffix (Jr., III, ...)")
	cmd.Flags().String("sex", "", "Sex")
	cmd.Flags().String("birthdate", "", "Birthdate (YYYY-MM-DD)")
	cmd.Flags().String("contact", "", "Contact number")
	cmd.Flags().Float64("height", 0, "Height in cm")
	cmd.Flags().Float64("weight", 0, "Weight in kg")
	cmd.Flags().String("notes", "", "Free-text notes")
	cmd.Flags().String("diagnosis", "", "Diagnosis name (looked up or created)")
	cmd.Flags().String("municipality", "", "Address: municipality")
	cmd.Flags().String("barangay", "", "Address: barangay")
	cmd.Flags().String("street", "", "Address: street")
	cmd.Flags().String("house-no", "", "Address: house/unit number")
	cmd.Flags().String("postal", "", "Address: postal code")
}

// patientFromFlags reads the form flags into a Patient plus the lookup
// inputs that still need resolving.
func patientFromFlags(cmd *cobra.Command) (*patient.Patient, string, address.Address) {
	str := func(name string) string { v, _ := cmd.Flags().GetString(name); return v }

	p := &patient.Patient{
		FirstName:  str("first"),
		MiddleName: str("middle"),
		LastName:   str("last"),
		NameExt:    str("ext"),
		Sex:        str("sex"),
		Birthdate:  str("birthdate"),
		Contact:    str("contact"),
		Notes:      str("notes"),
	}
	if cmd.Flags().Changed("height") {
		v, _ := cmd.Flags().GetFloat64("height")
		p.Height = &v
	}
	if cmd.Flags().Changed("weight") {
		v, _ := cmd.Flags().GetFloat64("weight")
		p.Weight = &v
	}

	addr := address.Address{
		Municipality: str("municipality"),
		Barangay:     str("barangay"),
		Street:       str("street"),
		HouseNo:      str("house-no"),
		PostalCode:   str("postal"),
	}
	return p, str("diagnosis"), addr
}

// resolveLookups attaches diagnosis and address references to p, creating
// lookup rows as needed. Runs in the caller's transaction context.
func resolveLookups(ctx context.Context, a *app, p *patient.Patient, diagName string, addr address.Address) error {
	if diagName != "" {
		id, err := a.diags.GetOrCreate(ctx, diagName)
		if err != nil {
			return err
		}
		p.DiagnosisID = &id
	}
	addrID, err := a.addrs.GetOrCreate(ctx, addr)
	if err != nil {
		return err
	}
	p.AddressID = addrID
	return nil
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a patient record",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			p, diagName, addr := patientFromFlags(cmd)
			var id int64
			err := a.tx.WithTx(ctx, func(ctx context.Context) error {
				if err := resolveLookups(ctx, a, p, diagName, addr); err != nil {
					return err
				}
				var err error
				id, err = a.patients.Add(ctx, p)
				return err
			})
			if err != nil {
				return friendly(err)
			}
			fmt.Printf("Added patient %d\n", id)
			return nil
		}),
	}
	patientFlags(cmd)
	return cmd
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one patient id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid patient id %q", args[0])
	}
	return id, nil
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one patient record",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			p, err := a.patients.Get(ctx, id)
			if err != nil {
				return friendly(err)
			}
			printPatient(p)
			return nil
		}),
	}
}

func updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a patient record",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			p, diagName, addr := patientFromFlags(cmd)
			err = a.tx.WithTx(ctx, func(ctx context.Context) error {
				if err := resolveLookups(ctx, a, p, diagName, addr); err != nil {
					return err
				}
				return a.patients.Update(ctx, id, p)
			})
			if err != nil {
				return friendly(err)
			}
			fmt.Printf("Updated patient %d\n", id)
			return nil
		}),
	}
	patientFlags(cmd)
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a patient record",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			if err := a.patients.Delete(ctx, id); err != nil {
				return friendly(err)
			}
			fmt.Printf("Deleted patient %d\n", id)
			return nil
		}),
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all patients, newest first",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			patients, err := a.patients.List(ctx)
			if err != nil {
				return err
			}
			printPatientTable(patients)
			return nil
		}),
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search patients by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			patients, err := a.patients.Search(ctx, term)
			if err != nil {
				return err
			}
			printPatientTable(patients)
			return nil
		}),
	}
}

func diagnosesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnoses",
		Short: "List known diagnoses",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			items, err := a.diags.List(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%-6s %s\n", "ID", "NAME")
			for _, d := range items {
				fmt.Printf("%-6d %s\n", d.ID, d.Name)
			}
			return nil
		}),
	}
}

func addressesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "addresses",
		Short: "List known addresses",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			items, err := a.addrs.List(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%-6s %-20s %-20s %-20s %-10s %s\n", "ID", "MUNICIPALITY", "BARANGAY", "STREET", "HOUSE", "POSTAL")
			for _, ad := range items {
				fmt.Printf("%-6d %-20s %-20s %-20s %-10s %s\n", ad.ID, ad.Municipality, ad.Barangay, ad.Street, ad.HouseNo, ad.PostalCode)
			}
			return nil
		}),
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "export {csv|json|xlsx}",
		Short:     "Export all patients to a file",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"csv", "json", "xlsx"},
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			format := args[0]
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = filepath.Join(a.cfg.ExportDir, "patients_export."+format)
			}

			details, err := a.patients.ListDetails(ctx)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer f.Close()

			switch format {
			case "csv":
				err = export.WriteCSV(f, details)
			case "json":
				err = export.WriteJSON(f, details)
			case "xlsx":
				err = export.WriteXLSX(f, details)
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
			if err != nil {
				return err
			}

			a.logger.Info().
				Str("run_id", uuid.New().String()).
				Str("format", format).
				Str("path", out).
				Int("patients", len(details)).
				Msg("export complete")
			fmt.Printf("Exported %d patient(s) to %s\n", len(details), out)
			return nil
		}),
	}
	cmd.Flags().String("out", "", "Output file path")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import patients from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			res, err := a.importer.ImportJSON(ctx, f)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d patient(s), skipped %d duplicate(s), %d invalid\n",
				res.Imported, res.Duplicates, res.Invalid)
			return nil
		}),
	}
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the PDF patient report",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = filepath.Join(a.cfg.ReportDir, "patient_report.pdf")
			}

			details, err := a.patients.ListDetails(ctx)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create report file: %w", err)
			}
			defer f.Close()

			if err := report.WritePDF(f, details, time.Now()); err != nil {
				return err
			}
			fmt.Printf("Report written to %s\n", out)
			return nil
		}),
	}
	cmd.Flags().String("out", "", "Output file path")
	return cmd
}

func printPatient(p *patient.Patient) {
	fmt.Printf("ID:        %d\n", p.ID)
	fmt.Printf("Name:      %s\n", p.FullName())
	fmt.Printf("Sex:       %s\n", p.Sex)
	fmt.Printf("Birthdate: %s\n", p.Birthdate)
	fmt.Printf("Contact:   %s\n", p.Contact)
	if p.Height != nil {
		fmt.Printf("Height:    %.1f\n", *p.Height)
	}
	if p.Weight != nil {
		fmt.Printf("Weight:    %.1f\n", *p.Weight)
	}
	if p.Notes != "" {
		fmt.Printf("Notes:     %s\n", p.Notes)
	}
}

func printPatientTable(patients []*patient.Patient) {
	fmt.Printf("%-6s %-30s %-8s %-12s %s\n", "ID", "NAME", "SEX", "BIRTHDATE", "CONTACT")
	for _, p := range patients {
		fmt.Printf("%-6d %-30s %-8s %-12s %s\n", p.ID, p.FullName(), p.Sex, p.Birthdate, p.Contact)
	}
}
