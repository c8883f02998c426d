package businessflow

// Spoken texts of the conversation engine. Script-specific texts come from models.AgentScript.
const (
	promptInboundGreeting = "Namaste! You have reached Victory Cadets Academy, the leader in Sainik School, RMS, and Navodaya entrance coaching."
	promptInboundMenu     = "Please press 1 to book a free demo class, 2 to know about course structure, or stay on the line to talk to our counsellor."
	promptDemoRequested   = "Great choice! Our counsellor will call you shortly to finalise the free demo class. Thank you!"
	promptCourseInfo      = "We offer integrated coaching with weekly tests, structured notes, and interview preparation. Classes run online and offline with personalised mentoring. A free demo session is the best way to experience it. Would you like to book one now?"
	promptCourseInfoKeys  = "Press 1 to book your free demo class, or stay on the line to talk to our counsellor."
	promptHandoff         = "Connecting you to our admissions specialist. Please hold."

	promptConfirmed       = "Wonderful! I will send you a WhatsApp message right away with demo class slots and meeting link. Looking forward to seeing your child in the session."
	promptSignOff         = "Thank you for your time. Jai Hind!"
	promptDeclined        = "Thank you for your honesty. If you change your mind, we are always here to support your child's dream."
	promptRecapReask      = "I completely understand. Just to recap, the demo class is completely free and gives you a clear plan for Sainik, RMS, or Navodaya preparation. Would you like me to reserve a seat for your child?"
	promptObjectionReask  = "I can schedule the session at a time that works best for you, and our mentor will customise the plan based on your child's strengths. Should I go ahead and book the free demo?"
	promptFollowUpClose   = "Thank you for your time. Our counsellor will call you back to answer any questions. Jai Hind!"
	promptTerminalGoodbye = "Thank you for calling Victory Cadets Academy. Goodbye!"

	promptMissingLead    = "Sorry, we could not identify this caller. Goodbye!"
	promptUnknownLead    = "We could not find your information. Please contact our office directly."
	promptInboundOffline = "Our admissions desk is currently offline. Please leave a message on WhatsApp."
	promptOffline        = "We are currently offline. Please call back later."
	promptMissingParams  = "Missing parameters."
	promptScriptNotFound = "Script not found."
)

// Notes appended to the lead log and the call ledger
const (
	noteConfirmedFormat  = "Auto-call: prospect verbally confirmed interest. Transcript: \"%s\"."
	noteDeclinedFormat   = "Auto-call: prospect declined. Transcript: \"%s\"."
	noteFollowUpFormat   = "Auto-call: no clear answer after %d objection rounds. Counsellor follow-up needed."
	noteInboundDemo      = "Inbound IVR: caller pressed 1 to book a free demo class."
	noteInboundHandoff   = "Inbound IVR: caller transferred to the admissions desk."
	noteStaleCallFailure = "no status callback received"
)
