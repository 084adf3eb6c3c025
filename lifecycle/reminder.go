package lifecycle

import (
	"fmt"
	"html"
	"time"

	"crm-project/backend/models"
)

const unknownProject = "غير محدد"

var columnTitles = map[Column]string{
	ColumnOverdue:    "متأخرة",
	ColumnTodo:       "قيد التنفيذ",
	ColumnInProgress: "جاري العمل",
	ColumnDone:       "مكتملة",
}

// ColumnTitle is the display name of a column.
func ColumnTitle(c Column) string { return columnTitles[c] }

// ReminderMessage builds the reminder an assignee receives for a task. The
// wording depends on the column and, for overdue tasks, on whether the
// extension has already been used.
func ReminderMessage(task models.Task, projectName string, now time.Time) string {
	if projectName == "" {
		projectName = unknownProject
	}
	details := fmt.Sprintf("\n\n*المهمة:* %s\n*المشروع:* %s", task.Description, projectName)

	switch ColumnOf(task, now) {
	case ColumnDone:
		return "*شكراً لالتزامك!* 🎉\n\nتم إكمال المهمة بنجاح. نقدر جهودك في إنجازها." + details
	case ColumnOverdue:
		kind := "تنبيه"
		action := "يرجى الدخول لحسابك وفتح المهمة لطلب تمديد أو تحديث حالتها."
		if task.ExtensionCount > 0 {
			kind = "تذكير ثانٍ"
			action = "يرجى الدخول لحسابك وفتح المهمة لتوضيح سبب التأخير وطلب المساعدة."
		}
		return fmt.Sprintf("*%s تأخير في مهمة* 😟\n\nلاحظنا أن المهمة التالية قد تجاوزت تاريخ استحقاقها. %s%s", kind, action, details)
	case ColumnTodo:
		return "*تذكير ببدء مهمة* 👋\n\nهذه المهمة مسندة إليك ولم تبدأ بعد. يرجى البدء في العمل عليها وتغيير حالتها إلى \"جاري العمل\" ليعرف الفريق تقدمك." + details
	default:
		return fmt.Sprintf("*متابعة حالة مهمة* ⚙️\n\nهذا تحديث بخصوص المهمة التالية:\n*الحالة الحالية:* %s\n%s\n\nيرجى الاستمرار في العمل الجيد!",
			ColumnTitle(ColumnInProgress), details)
	}
}

// AssignmentEmail is the subject and HTML body sent when a new task is
// assigned to someone.
func AssignmentEmail(task models.Task, assigneeName, projectName, appURL string) (subject, body string) {
	if projectName == "" {
		projectName = unknownProject
	}
	subject = "تذكير ببدء مهمة: " + task.Description
	body = fmt.Sprintf(`<div dir="rtl" style="font-family: Cairo, sans-serif; text-align: right; color: #333;">
<h3>تذكير ببدء مهمة 👋</h3>
<p>مرحباً %s،</p>
<p>لقد تم إسناد مهمة جديدة إليك. يرجى البدء في العمل عليها وتغيير حالتها إلى "جاري العمل" ليعرف الفريق تقدمك.</p>
<p><b>المهمة:</b> %s<br><b>المشروع:</b> %s</p>
<p style="text-align: center;"><a href="%s">الانتقال إلى النظام</a></p>
<p>شكراً لك،<br>إدارة الفريق</p>
</div>`, html.EscapeString(firstName(assigneeName)), html.EscapeString(task.Description),
		html.EscapeString(projectName), html.EscapeString(appURL))
	return subject, body
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	return name
}
