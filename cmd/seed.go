package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"facility-access-control/internal/appointments"
	"facility-access-control/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo persons, books, computers and appointments",
	Run: func(cmd *cobra.Command, args []string) {
		if err := seed(context.Background(), provider); err != nil {
			slog.Error("Seeding failed", "error", err)
			os.Exit(1)
		}
		fmt.Println("Seed data loaded")
	},
}

func strptr(s string) *string { return &s }

func seed(ctx context.Context, provider storage.Provider) error {
	persons := []*storage.Person{
		{FullName: "Daiana Palacios", Email: "daiana@example.com", CardUID: strptr("04A1B2C3")},
		{FullName: "Marcos Ferreyra", Email: "marcos@example.com", CardUID: strptr("04D4E5F6")},
		{FullName: "Lucía Benítez", Email: "lucia@example.com", CardUID: strptr("04AABBCC")},
	}
	for _, p := range persons {
		if err := provider.CreatePerson(ctx, p); err != nil {
			return fmt.Errorf("seed person %q: %w", p.FullName, err)
		}
	}

	books := []*storage.Book{
		{Title: "Introducción a la Informática", Author: "G. Acosta", CardUID: strptr("11AA22BB")},
		{Title: "Análisis Matemático I", Author: "R. Paenza", CardUID: strptr("33CC44DD")},
		{Title: "Física General", Author: "S. Gil", CardUID: strptr("55EE66FF")},
	}
	for _, b := range books {
		if err := provider.CreateBook(ctx, b); err != nil {
			return fmt.Errorf("seed book %q: %w", b.Title, err)
		}
	}

	computers := []*storage.Computer{
		{Brand: "Lenovo", Model: "ThinkPad E14", CardUID: strptr("770011AA")},
		{Brand: "HP", Model: "ProBook 440", CardUID: strptr("880022BB")},
	}
	for _, c := range computers {
		if err := provider.CreateComputer(ctx, c); err != nil {
			return fmt.Errorf("seed computer %s %s: %w", c.Brand, c.Model, err)
		}
	}

	today := time.Now().UTC().Format(appointments.DayFormat)
	appts := []*storage.Appointment{
		{PersonID: persons[0].ID, Day: today, StartTime: "10:00", Area: "Sala de estudio"},
		{PersonID: persons[1].ID, Day: today, StartTime: "14:30", Area: "Laboratorio"},
	}
	for _, a := range appts {
		if err := provider.CreateAppointment(ctx, a); err != nil {
			return fmt.Errorf("seed appointment: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	operator := &storage.Operator{
		FullName:     "Front Desk",
		Email:        "desk@example.com",
		PasswordHash: string(hash),
	}
	if err := provider.CreateOperator(ctx, operator); err != nil {
		return fmt.Errorf("seed operator: %w", err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
