package tgbot

import (
	"fmt"
	"regexp"
	"strings"

	"roster-bot/internal/chat"
	"roster-bot/internal/models"
	"roster-bot/internal/util"
)

// Commands and keyboard answers, compared against lower-cased input.
const (
	cmdStart          = "/start"
	cmdHelp           = "/help"
	cmdStats          = "/stats"
	cmdEditGames      = "/edit_games"
	cmdWebsite        = "/website"
	cmdAdd            = "/add"
	cmdSpectators     = "/spectators"
	cmdGetPlayerStats = "/get_player_stats"
	cmdExport         = "/export"
	cmdCancel         = "/cancel"
	cmdOK             = "/ok"

	btnContinueLater = "continue later"
	btnOverview      = "Overview"
	btnHandball      = "Handball Game"
	btnTimekeeper    = "Timekeeper Event"
	btnApprove       = "approve"
	btnRefuse        = "refuse"
)

// gameLabel matches keyboard buttons that start with a game's date-time.
var gameLabel = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4} \d{2}:\d{2}( \||$)`)

func isGameLabel(s string) bool {
	return gameLabel.MatchString(strings.TrimSpace(s))
}

func (a *App) startText(first string) string {
	return fmt.Sprintf("Hi %s!\nI am the %s Manager\nBelow you see the available commands\n"+
		"When you are ready, click on '/edit_games' to mark your presence in %s games", first, a.cfg.TeamName, a.cfg.TeamName)
}

func (a *App) helpText(first string, admin bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s - here are my available commands", first)
	b.WriteString("\n/edit_games: lets you edit your games")
	b.WriteString("\n/help: shows the list of available commands")
	b.WriteString("\n/stats: shows the status for our upcoming games")
	if admin {
		b.WriteString("\n/add: add new game or Timekeeper event")
		b.WriteString("\n/spectators: approve or refuse spectators")
		b.WriteString("\n/get_player_stats: answers per player")
		b.WriteString("\n/export: export the attendance table")
	}
	fmt.Fprintf(&b, "\n/website: Returns the link for %s", a.cfg.WebsiteLabel)
	return b.String()
}

func spectatorHelpText(first string) string {
	return fmt.Sprintf("Hi %s - as a spectator you can use"+
		"\n/stats: shows the status for our upcoming games"+
		"\n/website: Returns the link to the team page"+
		"\n/help: shows this list", first)
}

const (
	initText        = "Please try again by clicking on /start"
	errorText       = "Hang on - an unknown error occurred - please try again in a few minutes - the maintainer has been informed"
	selectionText   = "Will you be there (YES), be absent (NO) or are not sure yet (UNSURE)?"
	websiteText     = "Here it is:"
	awaitApproval   = "Your request is awaiting approval by an administrator. You will get a message once it has been handled."
	noAssociation   = "You are not allowed to use this bot, if you think this is wrong doing, contact your referrer"
	approvedText    = "You have been approved as a spectator. Use /stats to see our upcoming games."
	noPendingText   = "There are no spectators awaiting approval"
	addText         = "Let's add a new event: is it a Handball-Game or a Timekeeper-Event?\nYou can write /cancel to cancel the process any time."
	whenText        = "Please indicate WHEN the event will take place\nDo this in the following format:\n01.01.2020 20:30\n(write /cancel to cancel the process)"
	whenFailText    = "Try again, the format did not match.\nTry the following format:\n01.01.2020 20:30\n(write /cancel to cancel the process)"
	whereText       = "Fantastic, WHERE will the event be?\n(write /cancel to cancel the process)"
	opponentText    = "Great, against whom will we play?\n(write /cancel to cancel the process)"
	whichMatchText  = "Which match will you be timekeeping?\n(write /cancel to cancel the process)"
	cancelledText   = "Process cancelled"
	interruptedText = "The process was interrupted, please start again with /add"
	groupStatsIntro = "The stats for our next game are:\n"
	exportOffText   = "Export is not configured"

	// Sent as MarkdownV2, hence the escapes.
	editGamesText = "Click on the game to change your attendance \\- in brackets you see your current status" +
		"\n*TIP: the list is scrollable*"
	statsOverviewText = "Click on the game to get the stats for \\- the summary is of the format:" +
		"\n 5 *Y*ES \\- 3 *N*O \\- 4 *U*NSURE" +
		"\n*TIP: the list is scrollable*"
)

func hiText(first string) string { return "Hi " + first }
func farewellText(first string) string { return "Cheerio, " + first }

func confirmText(d *models.AddDraft) string {
	kind := "Handball game"
	if d.Timekeeper {
		kind = "Timekeeper event"
	}
	return fmt.Sprintf("%s\nWhen: %s\nWhere: %s\nWhat: %s\n\nWrite /ok to save or /cancel to discard",
		kind, util.MakeDateTimePretty(d.DateTime), d.Place, d.Adversary)
}

// ---------- Keyboards ----------

func defaultKeyboard(admin bool) *chat.Keyboard {
	if admin {
		return &chat.Keyboard{Rows: [][]string{
			{cmdHelp, cmdStats},
			{cmdEditGames, cmdAdd, cmdWebsite},
			{cmdSpectators, cmdGetPlayerStats, cmdExport},
		}}
	}
	return &chat.Keyboard{Rows: [][]string{{cmdHelp, cmdStats}, {cmdEditGames, cmdWebsite}}}
}

func spectatorKeyboard() *chat.Keyboard {
	return &chat.Keyboard{Rows: [][]string{{cmdHelp, cmdStats, cmdWebsite}}}
}

var (
	initKeyboard       = chat.Column(cmdStart)
	addKeyboard        = chat.Column(btnHandball, btnTimekeeper, cmdCancel)
	cancelKeyboard     = chat.Column(cmdCancel)
	okOrCancelKeyboard = &chat.Keyboard{Rows: [][]string{{cmdOK, cmdCancel}}}
	selectKeyboard     = &chat.Keyboard{
		Rows:    [][]string{{"YES", "NO", "UNSURE"}, {btnOverview, btnContinueLater}},
		OneTime: true,
	}
	approveKeyboard = &chat.Keyboard{Rows: [][]string{{btnApprove, btnRefuse}, {btnContinueLater}}}
)

// editListKeyboard lists upcoming games with the player's own answer.
func editListKeyboard(games []models.GameStatus) *chat.Keyboard {
	kb := &chat.Keyboard{Rows: [][]string{{btnContinueLater}}, OneTime: true}
	for _, g := range games {
		kb.Rows = append(kb.Rows, []string{fmt.Sprintf("%s (%s)", GameButton(g.Game), g.Status)})
	}
	return kb
}

// statsListKeyboard lists upcoming games with YES/NO/UNSURE counts.
func statsListKeyboard(games []models.GameSummary) *chat.Keyboard {
	kb := &chat.Keyboard{Rows: [][]string{{btnContinueLater}}, OneTime: true}
	for _, g := range games {
		kb.Rows = append(kb.Rows, []string{fmt.Sprintf("%s | %dY - %dN - %dU",
			GameButton(g.Game), g.Count(models.Yes), g.Count(models.No), g.Count(models.Unsure))})
	}
	return kb
}

// GameButton is the label a game is listed under: "05.09.2020 17:30 | Opponent".
func GameButton(g models.Game) string {
	return util.MakeDateTimePretty(g.DateTime) + " | " + g.Adversary
}

func spectatorButton(s models.Spectator) string {
	return fmt.Sprintf("%d | %s", s.ID, s.Name())
}
