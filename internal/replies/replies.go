// Package replies holds the chat texts the bot sends to a channel.
package replies

import (
	"fmt"
	"strings"
	"time"

	"hangman_bot/internal/config"
)

const (
	NotYourTurn    = "Сейчас не Ваш ход"
	NoActiveGame   = "Игра не создана. Чтобы вступить в игру, напишите %s"
	AlreadyStarted = "Игра уже начата"
	NotStarted     = "Игра ещё не начата"
	AlreadyJoined  = "Вы уже в игре"
	NoPlayers      = "В игре нет ни одного игрока"
	NoWords        = "Не осталось неразгаданных слов, игру начать нельзя"

	MissingLetter = "Вы не ввели букву"
	MissingWord   = "Вы не ввели слово"
	OneLetter     = "Введите только одну букву"
	OneWord       = "Введите только одно слово"

	Finished  = "Игра завершена"
	Cancelled = "Игра отменена"
	NoResults = "Никто не набрал очков"
	Failure   = "Что-то пошло не так, попробуйте ещё раз"
)

// Rules lists the command vocabulary.
func Rules(c config.Commands) string {
	return fmt.Sprintf(`Поле чудес:
Чтобы вступить в игру, напишите %s.
Для начала игры: %s.
Для досрочного завершения игры: %s.
Для предложения буквы или слова: %s а, %s машина.`,
		c.Join, c.Start, c.Finish, c.GuessLetter, c.GuessWord)
}

func BeforeStart(c config.Commands, turn time.Duration) string {
	return fmt.Sprintf("Дождитесь остальных игроков или начинайте игру с помощью команды %s.\n"+
		"После начала игры на каждый ход даётся %d сек.", c.Start, int(turn.Seconds()))
}

func NoGame(c config.Commands) string {
	return fmt.Sprintf(NoActiveGame, c.Join)
}

func Joined(name string, position int) string {
	return fmt.Sprintf("%s вступает в игру, номер хода: %d", name, position)
}

func Started(mask []rune, clue, first string) string {
	return fmt.Sprintf("%s\nЗагадка: %s\n%s", string(mask), clue, Turn(first))
}

func Turn(name string) string {
	return "Ходит " + name
}

func LetterHit(letter string, mask []rune, points int) string {
	return fmt.Sprintf("Буква %s есть в слове: %s (+%d)", strings.ToLower(letter), string(mask), points)
}

func LetterMiss(letter string) string {
	return fmt.Sprintf("Такой буквы нет: %s", strings.ToLower(letter))
}

func LetterOpened(letter string) string {
	return fmt.Sprintf("Буква %s уже открыта", strings.ToLower(letter))
}

func WordHit(word string, points int) string {
	return fmt.Sprintf("Вы угадали загаданное слово: %s (+%d)", strings.ToLower(word), points)
}

func WordMiss(word string) string {
	return fmt.Sprintf("Неверное слово: %s\nХод переходит к следующему игроку", strings.ToLower(word))
}

// Standing is a results line: a player's display name and total points.
type Standing struct {
	Name   string
	Points int
}

func Results(standings []Standing) string {
	if len(standings) == 0 {
		return NoResults
	}

	var b strings.Builder
	b.WriteString("Результаты:")
	for i, s := range standings {
		fmt.Fprintf(&b, "\n%d. %s: %d", i+1, s.Name, s.Points)
	}
	return b.String()
}

func Winner(name string) string {
	return "Победитель: " + name
}
