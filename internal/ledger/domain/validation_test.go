package domain

import (
	"errors"
	"testing"
)

func TestValidateBalancedAccepts(t *testing.T) {
	lines := []LedgerEntryLine{
		{AccountCode: AccountCodeRefundExpense, Direction: LedgerEntryDirectionDebit, Amount: 1000},
		{AccountCode: AccountCodeCashClearing, Direction: LedgerEntryDirectionCredit, Amount: 1000},
	}
	if err := ValidateBalanced(lines); err != nil {
		t.Fatalf("expected balanced entry to validate, got %v", err)
	}
}

func TestValidateBalancedRejectsUnbalanced(t *testing.T) {
	lines := []LedgerEntryLine{
		{AccountCode: AccountCodeRefundExpense, Direction: LedgerEntryDirectionDebit, Amount: 1000},
		{AccountCode: AccountCodeCashClearing, Direction: LedgerEntryDirectionCredit, Amount: 900},
	}
	if err := ValidateBalanced(lines); !errors.Is(err, ErrUnbalancedEntry) {
		t.Fatalf("expected ErrUnbalancedEntry, got %v", err)
	}
}

func TestValidateBalancedRejectsSingleLine(t *testing.T) {
	lines := []LedgerEntryLine{
		{AccountCode: AccountCodeCashClearing, Direction: LedgerEntryDirectionDebit, Amount: 1000},
	}
	if err := ValidateBalanced(lines); !errors.Is(err, ErrInvalidEntryLines) {
		t.Fatalf("expected ErrInvalidEntryLines, got %v", err)
	}
}

func TestValidateBalancedRejectsNegativeAmount(t *testing.T) {
	lines := []LedgerEntryLine{
		{AccountCode: AccountCodeRefundExpense, Direction: LedgerEntryDirectionDebit, Amount: -1},
		{AccountCode: AccountCodeCashClearing, Direction: LedgerEntryDirectionCredit, Amount: -1},
	}
	if err := ValidateBalanced(lines); !errors.Is(err, ErrInvalidLineAmount) {
		t.Fatalf("expected ErrInvalidLineAmount, got %v", err)
	}
}

func TestValidateBalancedRejectsUnknownDirection(t *testing.T) {
	lines := []LedgerEntryLine{
		{AccountCode: AccountCodeRefundExpense, Direction: "sideways", Amount: 100},
		{AccountCode: AccountCodeCashClearing, Direction: LedgerEntryDirectionCredit, Amount: 100},
	}
	if err := ValidateBalanced(lines); !errors.Is(err, ErrInvalidLineDirection) {
		t.Fatalf("expected ErrInvalidLineDirection, got %v", err)
	}
}
