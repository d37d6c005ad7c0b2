package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	RSClientGo "github.com/risksense/RSClientGo"
)

// flag names
const (
	flagFile        = "file"
	flagType        = "type"
	flagRows        = "rows"
	flagComment     = "comment"
	flagTemplateID  = "template-id"
	flagMaxWait     = "max-wait"
	flagKeepArchive = "keep-archive"
)

type exportOptions struct {
	filters     []string
	file        string
	fileType    string
	rows        uint64
	comment     string
	templateID  uint64
	columns     []string
	maxWait     int
	keepArchive bool
}

func (a *app) exportCmd() *cobra.Command {
	opts := exportOptions{}

	cmd := &cobra.Command{
		Use:   "export <subject>",
		Short: "Export the records of a subject matching the filters to a local directory",
		Long: `Export submits a bulk export job, waits until the platform has built it,
downloads the archive as <file>.zip and extracts it into the <file> directory.`,
		Example: `  rsctl export hostFinding --file ./critical --filter severity:IN:Critical --type XLSX
  rsctl export host --file ./hosts --columns hostName,ipAddress --max-wait 600`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, err := RSClientGo.SubjectByName(args[0])
			if err != nil {
				return err
			}
			filters, err := parseFilters(opts.filters)
			if err != nil {
				return err
			}

			client, err := a.connect(cmd)
			if err != nil {
				return err
			}

			vars := client.GetClientVars()
			if cmd.Flags().Changed(flagMaxWait) {
				vars.ExportPollingMaxSeconds = opts.maxWait
			}
			if cmd.Flags().Changed(flagKeepArchive) {
				vars.ExportKeepArchive = opts.keepArchive
			}
			client.SetClientVars(vars)

			options := RSClientGo.ExportOptions{
				FileName:    opts.file,
				FileType:    RSClientGo.ExportFileType(strings.ToUpper(opts.fileType)),
				RowCountCap: opts.rows,
				Comment:     opts.comment,
				Template:    RSClientGo.ExportTemplateChoice{TemplateID: opts.templateID},
			}

			sc := client.Subject(subject)
			if len(opts.columns) > 0 {
				template, err := columnTemplate(client, sc, opts.templateID)
				if err != nil {
					return err
				}
				if missing := unknownColumns(template, opts.columns); len(missing) > 0 {
					return fmt.Errorf("unknown %v export columns: %v", subject, strings.Join(missing, ", "))
				}
				options.Template.Override = template.SelectOnly(opts.columns...).ExportableFields
			}

			dir, err := sc.Export(filters, options)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), dir)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.filters, flagFilter, "f", nil, "Filter as field:OPERATOR:value, repeatable")
	flags.StringVar(&opts.file, flagFile, "", "Output path, the archive is saved as <file>.zip and extracted to <file>/")
	flags.StringVar(&opts.fileType, flagType, string(RSClientGo.ExportCSV), "Export file type: CSV, XLSX or JSON")
	flags.Uint64Var(&opts.rows, flagRows, 0, "Maximum number of exported rows (default no limit)")
	flags.StringVar(&opts.comment, flagComment, "", "Comment attached to the export job")
	flags.Uint64Var(&opts.templateID, flagTemplateID, 0, "Saved export template ID (default the subject's default template)")
	flags.StringSliceVarP(&opts.columns, flagColumns, "c", nil, "Export only these column identifiers")
	flags.IntVar(&opts.maxWait, flagMaxWait, 0, "Seconds to wait for the export job, 0 waits indefinitely (default from config)")
	flags.BoolVar(&opts.keepArchive, flagKeepArchive, false, "Keep the downloaded archive after extraction")
	if err := cmd.MarkFlagRequired(flagFile); err != nil {
		panic(fmt.Errorf("failed to mark file flag as required for export command: %w", err))
	}
	return cmd
}

func columnTemplate(client *RSClientGo.RSClient, sc RSClientGo.SubjectClient, templateID uint64) (RSClientGo.ExportTemplate, error) {
	if templateID != 0 {
		return client.GetExportTemplateByID(templateID)
	}
	return sc.ExportTemplate()
}

func unknownColumns(template RSClientGo.ExportTemplate, columns []string) []string {
	known := map[string]bool{}
	for _, g := range template.ExportableFields {
		for _, f := range g.Fields {
			known[f.IdentifierField] = true
		}
	}
	missing := []string{}
	for _, c := range columns {
		if !known[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func (a *app) templateCmd() *cobra.Command {
	var templateID uint64

	cmd := &cobra.Command{
		Use:   "template <subject>",
		Short: "Show the export columns of a subject's default template or a saved template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, err := RSClientGo.SubjectByName(args[0])
			if err != nil {
				return err
			}
			client, err := a.connect(cmd)
			if err != nil {
				return err
			}

			template, err := columnTemplate(client, client.Subject(subject), templateID)
			if err != nil {
				return err
			}

			rows := [][]string{}
			for _, g := range template.ExportableFields {
				for _, f := range g.Fields {
					selected := ""
					if f.Selected {
						selected = "yes"
					}
					rows = append(rows, []string{g.Heading, f.IdentifierField, f.DisplayText, strconv.Itoa(f.FieldOrder), selected})
				}
			}
			writeTable(cmd.OutOrStdout(), []string{"Group", "Identifier", "Display Text", "Order", "Selected"}, rows)
			a.logger.Debugf("Template %v", template.String())
			return nil
		},
	}
	cmd.Flags().Uint64Var(&templateID, flagTemplateID, 0, "Saved export template ID")
	return cmd
}
